package tenant

import (
	"testing"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

func TestResolve(t *testing.T) {
	reg := NewRegistry(map[string]config.TenantConfig{
		"acme": {
			BaseAPIURL: "https://maximo.acme.example/maximo/api/",
			APIKey:     "mk",
		},
		"broken": {
			BaseAPIURL: "/not-absolute",
			APIKey:     "mk",
		},
	})

	ctx, err := reg.Resolve("acme")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ctx.ID != "acme" {
		t.Fatalf("id = %q", ctx.ID)
	}
	if ctx.BaseAPIURL != "https://maximo.acme.example/maximo/api" {
		t.Fatalf("base URL not normalized: %q", ctx.BaseAPIURL)
	}
	if ctx.APIKey != "mk" {
		t.Fatalf("api key = %q", ctx.APIKey)
	}

	if _, err := reg.Resolve("ghost"); err == nil {
		t.Fatal("expected unknown tenant error")
	}
	if _, err := reg.Resolve("broken"); err == nil {
		t.Fatal("expected base URL error")
	}
}

func TestNewRegistry_NilTable(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Resolve("anything"); err == nil {
		t.Fatal("expected unknown tenant error")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://maximo.example/api", want: "https://maximo.example/api"},
		{in: "  https://maximo.example/api///  ", want: "https://maximo.example/api"},
		{in: "http://localhost:8080", want: "http://localhost:8080"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "maximo.example/api", wantErr: true},
		{in: "/api", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeBaseURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeBaseURL(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeBaseURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

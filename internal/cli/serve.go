package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/api"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/runtime"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/server"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/trace"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			traces := trace.NewBuffer(cfg.Trace.Capacity, cfg.Trace.PayloadCap)
			svc := runtime.NewService(cfg, traces)
			router := api.NewRouter(api.NewHandler(svc), cfg.Server.Token)

			logging.Logger().Info(
				"gateway configured",
				"addr", cfg.Server.Addr,
				"llm_profiles", len(cfg.LLM),
				"tenants", len(cfg.Tenants),
				"registry_url", cfg.Tools.RegistryURL,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg.Server.Addr, router).Start(ctx)
		},
	}
}

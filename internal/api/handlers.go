package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/runtime"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/trace"
)

const defaultTraceLimit = 100

// Service is the slice of the runtime the handlers depend on.
type Service interface {
	Chat(ctx context.Context, params runtime.ChatParams) (*runtime.ChatReply, error)
	Traces() *trace.Buffer
}

// Handler serves the gateway API against the runtime service.
type Handler struct {
	svc Service
}

// NewHandler builds the API handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var params runtime.ChatParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		jsonError(w, http.StatusBadRequest, string(runtime.KindConfigError), "invalid request body: "+err.Error())
		return
	}

	reply, err := h.svc.Chat(r.Context(), params)
	if err != nil {
		kind, status := classify(err)
		jsonError(w, status, string(kind), detail(err))
		return
	}
	jsonResponse(w, http.StatusOK, reply)
}

func classify(err error) (runtime.ErrorKind, int) {
	var runtimeErr *runtime.Error
	if errors.As(err, &runtimeErr) {
		switch runtimeErr.Kind {
		case runtime.KindConfigError:
			return runtimeErr.Kind, http.StatusBadRequest
		case runtime.KindProviderError:
			return runtimeErr.Kind, http.StatusBadGateway
		}
	}
	return runtime.KindInternalError, http.StatusInternalServerError
}

func detail(err error) string {
	var runtimeErr *runtime.Error
	if errors.As(err, &runtimeErr) {
		return runtimeErr.Detail
	}
	return err.Error()
}

func (h *Handler) readTrace(w http.ResponseWriter, r *http.Request) {
	limit := defaultTraceLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			jsonError(w, http.StatusBadRequest, string(runtime.KindConfigError), "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	kind := trace.Kind(r.URL.Query().Get("kind"))

	events := h.svc.Traces().Recent(limit, kind)
	jsonResponse(w, http.StatusOK, map[string]any{"events": events})
}

// streamTrace upgrades to a websocket and pushes each trace append to the
// client as one JSON event until either side goes away.
func (h *Handler) streamTrace(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logging.Logger().Warn("trace stream upgrade failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := h.svc.Traces().Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return
			}
		}
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

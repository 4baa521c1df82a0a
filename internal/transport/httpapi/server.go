package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/pkg/log"
)

// Chat is the slice of the chat service the HTTP transport needs.
type Chat interface {
	ProcessMessage(ctx context.Context, userID, message, language string) (chat.Reply, error)
}

type Server struct {
	cfg  *config.ServerConfig
	chat Chat
	srv  *http.Server
}

func New(cfg *config.ServerConfig, svc Chat) *Server {
	s := &Server{cfg: cfg, chat: svc}
	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type webhookRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

type webhookResponse struct {
	Response     string      `json:"response"`
	IsRepetition bool        `json:"is_repetition"`
	Usage        *core.Usage `json:"usage,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromCtx(r.Context())

	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)

	// Validate before anything touches storage or providers.
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	reply, err := s.chat.ProcessMessage(r.Context(), req.UserID, req.Message, req.Language)
	if err != nil {
		logger.Error().Err(err).Str("user_id", req.UserID).Msg("message processing failed")
		// The reply carries the fallback text; the client still gets 200
		// with a usable response body.
	}

	resp := webhookResponse{
		Response:     reply.Response,
		IsRepetition: reply.IsRepetition,
	}
	if reply.Usage.TotalTokens > 0 {
		resp.Usage = &reply.Usage
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// requestLogger threads a request-scoped logger carrying the chi request id
// into the request context.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromCtx(ctx).With().
			Str("request_id", middleware.GetReqID(ctx)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

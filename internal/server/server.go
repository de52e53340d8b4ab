// Package server is the thin webhook transport in front of the dispatcher.
package server

import (
	"net/http"

	"github.com/google/go-github/v66/github"

	"github.com/Toxicable/github-robot/internal/bot"
	"github.com/Toxicable/github-robot/internal/logging"
)

type Server struct {
	dispatcher *bot.Dispatcher
	secret     []byte
	logger     logging.Logger
}

func New(dispatcher *bot.Dispatcher, secret string, logger logging.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		secret:     []byte(secret),
		logger:     logger.WithName("server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, s.secret)
	if err != nil {
		s.logger.Error(err, "webhook payload rejected")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	evt := bot.NewEvent(github.WebHookType(r), github.DeliveryID(r), payload)
	if err := s.dispatcher.Dispatch(r.Context(), evt); err != nil {
		s.logger.Error(err, "handler failed", "event", evt.Name, "delivery", evt.DeliveryID)
		http.Error(w, "handler failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

type chatRequest struct {
	Question string `json:"question"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

type healthBody struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid request body", Code: qaerrors.ErrCodeInvalidQuestion})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "question is required", Code: qaerrors.ErrCodeInvalidQuestion})
		return
	}
	if limit := s.cfg.MaxQuestionLen; limit > 0 && utf8.RuneCountInString(question) > limit {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "question is too long", Code: qaerrors.ErrCodeQuestionTooLong})
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.answerer.Answer(ctx, question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "reload is not enabled"})
		return
	}
	force := r.URL.Query().Get("force") == "true"
	res, err := s.reloader.Reload(r.Context(), force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("corpus_reload",
		slog.String("trigger", "admin"),
		slog.Int("entries", res.Entries),
		slog.Bool("skipped", res.Skipped))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "stats are not enabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// writeError maps a pipeline error to a status code and a detail body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Detail: err.Error()}
	if qe, ok := qaerrors.As(err); ok {
		body.Detail = qe.Message
		body.Code = qe.Code
	}
	if status >= 500 {
		s.logger.Error("request_failed", qaerrors.LogAttrs(err)...)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, context.DeadlineExceeded), qaerrors.IsTimeout(err):
		return http.StatusGatewayTimeout
	case qaerrors.IsEmbeddingError(err), qaerrors.IsRetrievalError(err):
		return http.StatusBadGateway
	}
	if qe, ok := qaerrors.As(err); ok {
		switch qe.Category {
		case qaerrors.CategoryValidation:
			return http.StatusBadRequest
		case qaerrors.CategoryConfig:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

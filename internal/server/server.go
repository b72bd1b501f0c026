// Package server отдаёт ход ассистента по HTTP.
//
// API без состояния: вызывающий присылает историю разговора и (опционально)
// явное состояние диалога, а в ответ получает ответ ассистента, запись для
// сохранения и следующее состояние.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/response"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

// Responder выполняет ход ассистента по идентификатору. Реализуется *assistant.Service.
type Responder interface {
	Respond(ctx context.Context, assistantID string, req assistant.Request) (response.AssistantResponse, error)
}

// GenerateRequest - тело POST /v1/assistants/{id}/generate.
type GenerateRequest struct {
	Assistant assistant.Context `json:"assistant"`
	History   []dialogue.Record `json:"history"`
	Message   string            `json:"message"`
	State     *dialogue.State   `json:"state,omitempty"`
}

// GenerateResponse - ответ на успешный ход.
type GenerateResponse struct {
	RequestID string                     `json:"requestId"`
	Response  response.AssistantResponse `json:"response"`

	// Record - запись ответа ассистента для хранилища диалогов.
	Record dialogue.Record `json:"record"`

	// State - состояние после сообщения пользователя и ответа ассистента.
	State dialogue.State `json:"state"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Server - HTTP API ассистента.
type Server struct {
	responder Responder
	gatherer  prometheus.Gatherer
	mux       *http.ServeMux
}

// New создаёт Server. gatherer отдаётся на /metrics; nil - метрики не публикуются.
func New(responder Responder, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		responder: responder,
		gatherer:  gatherer,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /v1/assistants/{id}/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler возвращает http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe слушает addr до отмены ctx, затем корректно останавливается.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("HTTP server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		utils.Info("HTTP server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	assistantID := strings.TrimSpace(r.PathValue("id"))

	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, requestID, fmt.Errorf("%w: decode body: %v", assistant.ErrInvalidRequest, err))
		return
	}
	if assistantID == "" {
		s.writeError(w, requestID, fmt.Errorf("%w: assistant id is empty", assistant.ErrInvalidRequest))
		return
	}

	history := dialogue.TurnsFromRecords(req.History)
	start := time.Now()

	resp, err := s.responder.Respond(r.Context(), assistantID, assistant.Request{
		Assistant: req.Assistant,
		History:   history,
		Message:   req.Message,
		State:     req.State,
	})
	if err != nil {
		utils.Error("Generate failed",
			"request_id", requestID,
			"assistant_id", assistantID,
			"error", err)
		s.writeError(w, requestID, err)
		return
	}

	state := dialogue.FromHistory(history)
	if req.State != nil {
		state = *req.State
	}
	state = state.Advance(llm.UserTurn(req.Message)).Advance(dialogue.ModelTurnFromResponse(resp))

	utils.Info("Generate completed",
		"request_id", requestID,
		"assistant_id", assistantID,
		"function_call", resp.FunctionCall != nil,
		"duration", time.Since(start))

	writeJSON(w, http.StatusOK, GenerateResponse{
		RequestID: requestID,
		Response:  resp,
		Record:    dialogue.RecordFromResponse(resp),
		State:     state,
	})
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	writeJSON(w, StatusFor(err), ErrorResponse{
		RequestID: requestID,
		Error:     err.Error(),
		Retryable: errs.IsRetryable(err),
	})
}

// StatusFor сопоставляет ошибку хода HTTP статусу.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrSafetyBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrCapabilityLoad),
		errors.Is(err, errs.ErrEmptyResponse),
		errors.Is(err, errs.ErrUnrecognizedCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.Warn("Failed to write response", "error", err)
	}
}

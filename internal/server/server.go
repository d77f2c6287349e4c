package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/barista-agent-poc/server/internal/agent/graph"
	"github.com/barista-agent-poc/server/internal/agent/model"
	logx "github.com/barista-agent-poc/server/pkg/logger"
)

// internalErrorDetail is the only error text ever shown to clients; causes
// stay in the logs.
const internalErrorDetail = "Something went wrong. Please try again."

// Config describes the HTTP listener and the allowed browser origins.
type Config struct {
	Addr                 string `envconfig:"SERVER_ADDR" default:":8080"`
	FrontendURL          string `envconfig:"FRONTEND_URL"`
	PreviewOriginPattern string `envconfig:"PREVIEW_ORIGIN_PATTERN" default:"https://[\\w-]+\\.vercel\\.app"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Finished  bool   `json:"finished"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Server exposes the barista agent over HTTP.
type Server struct {
	runner  graph.Runner
	handler http.Handler
}

func New(cfg Config, runner graph.Runner) (*Server, error) {
	previewOrigin, err := regexp.Compile("^" + cfg.PreviewOriginPattern + "$")
	if err != nil {
		return nil, err
	}

	s := &Server{runner: runner}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.handler = corsMiddleware(cfg.FrontendURL, previewOrigin)(mux)
	return s, nil
}

// Handler returns the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body."})
		return
	}
	s.runTurn(w, r, strings.TrimSpace(req.SessionID), req.Message)
}

// handleStart opens a fresh session with an empty message, which the agent
// answers with its greeting.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.runTurn(w, r, "", "")
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, sessionID, message string) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	out, err := s.runner.Invoke(r.Context(), model.TurnInput{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: internalErrorDetail})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  out.Response,
		SessionID: out.SessionID,
		Finished:  out.Finished,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "barista-agent",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

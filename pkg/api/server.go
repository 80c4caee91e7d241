// Package api exposes an operation.Tracker over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/gripper"
	"github.com/gwillem/cobot/pkg/operation"
	"github.com/gwillem/cobot/pkg/waypoint"
)

// Prefix is the path prefix of all robot routes.
const Prefix = "/api/v1/cobot"

// RequestIDHeader carries the id every request is logged under.
const RequestIDHeader = "X-Request-ID"

var errBadRequest = errors.New("bad request")

// Server routes HTTP requests to a tracker.
type Server struct {
	tracker *operation.Tracker
	log     zerolog.Logger
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router for t.
func NewServer(t *operation.Tracker, log zerolog.Logger) *Server {
	s := &Server{
		tracker: t,
		log:     log.With().Str("component", "api").Logger(),
		router:  mux.NewRouter(),
	}
	s.routes()
	s.handler = s.requestID(s.router)
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	api := r.PathPrefix(Prefix).Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/points", s.handlePoints).Methods("GET")
	api.HandleFunc("/di/{index:[0-9]+}", s.handleDigitalInput).Methods("GET")
	api.Handle("/events", websocket.Handler(s.handleEvents)).Methods("GET")

	api.HandleFunc("/reset", s.lifecycle((*operation.Tracker).Reset)).Methods("POST")
	api.HandleFunc("/enable", s.lifecycle((*operation.Tracker).Enable)).Methods("POST")
	api.HandleFunc("/disable", s.lifecycle((*operation.Tracker).Disable)).Methods("POST")
	api.HandleFunc("/clear-error", s.lifecycle((*operation.Tracker).ClearError)).Methods("POST")

	api.HandleFunc("/move", s.toPoint((*operation.Tracker).MoveTo, true)).Methods("POST")
	api.HandleFunc("/move/pose", s.handleMovePose).Methods("POST")
	api.HandleFunc("/pick", s.toPoint((*operation.Tracker).Pick, true)).Methods("POST")
	api.HandleFunc("/place", s.toPoint((*operation.Tracker).Place, true)).Methods("POST")
	api.HandleFunc("/scan", s.toPoint((*operation.Tracker).Scan, false)).Methods("POST")
	api.HandleFunc("/grip", s.handleGrip).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type ctxKey struct{}

// requestID tags every request with a uuid, echoes it in the response and
// logs the request when it completes.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := s.log.With().Str("request_id", id).Logger()
		ctx := context.WithValue(log.WithContext(r.Context()), ctxKey{}, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket handler take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= 500 {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeJSON(w, code, errorBody{Error: err.Error(), RequestID: requestIDFrom(r.Context())})
}

// statusCode maps operation errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, waypoint.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, gripper.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, dobot.ErrCommandTimeout),
		errors.Is(err, dobot.ErrIdleWaitTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

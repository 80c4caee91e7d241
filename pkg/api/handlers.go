package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/gripper"
	"github.com/gwillem/cobot/pkg/operation"
)

// Default MovJ ratios when a request leaves them out.
const (
	DefaultSpeedJ = 10
	DefaultAccJ   = 10
)

// MoveRequest targets a named waypoint.
type MoveRequest struct {
	Point  string `json:"point"`
	SpeedJ *int   `json:"speedj,omitempty"`
	AccJ   *int   `json:"accj,omitempty"`
}

// PoseRequest targets explicit coordinates.
type PoseRequest struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Z      *float64 `json:"z"`
	R      float64  `json:"r"`
	SpeedJ *int     `json:"speedj,omitempty"`
	AccJ   *int     `json:"accj,omitempty"`
}

// GripRequest opens or closes the gripper.
type GripRequest struct {
	Action string `json:"action"`
}

// PointResponse is one entry of GET /points.
type PointResponse struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	R    float64 `json:"r"`
}

// DigitalInputResponse is the reply of GET /di/{index}.
type DigitalInputResponse struct {
	Index int `json:"index"`
	Value int `json:"value"`
}

func moveOptions(speedj, accj *int) (dobot.MoveOptions, error) {
	opts := dobot.MoveOptions{SpeedJ: DefaultSpeedJ, AccJ: DefaultAccJ}
	if speedj != nil {
		opts.SpeedJ = *speedj
	}
	if accj != nil {
		opts.AccJ = *accj
	}
	if opts.SpeedJ < 1 || opts.SpeedJ > 100 {
		return opts, fmt.Errorf("%w: speedj %d out of range 1-100", errBadRequest, opts.SpeedJ)
	}
	if opts.AccJ < 1 || opts.AccJ > 100 {
		return opts, fmt.Errorf("%w: accj %d out of range 1-100", errBadRequest, opts.AccJ)
	}
	return opts, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// operationContext detaches an operation from the client connection, so a
// disconnect cannot stop a move halfway.
func operationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, st operation.Status, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Status(r.Context())
	s.respond(w, r, st, err)
}

func (s *Server) lifecycle(op func(*operation.Tracker, context.Context) (operation.Status, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := op(s.tracker, operationContext(r))
		s.respond(w, r, st, err)
	}
}

type pointOp func(*operation.Tracker, context.Context, string, dobot.MoveOptions) (operation.Status, error)

// toPoint handles the waypoint operations. required says whether the request
// must name a point.
func (s *Server) toPoint(op pointOp, required bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveRequest
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if required && req.Point == "" {
			s.writeError(w, r, fmt.Errorf("%w: point is required", errBadRequest))
			return
		}
		opts, err := moveOptions(req.SpeedJ, req.AccJ)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		st, err := op(s.tracker, operationContext(r), req.Point, opts)
		s.respond(w, r, st, err)
	}
}

func (s *Server) handleMovePose(w http.ResponseWriter, r *http.Request) {
	var req PoseRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.X == nil || req.Y == nil || req.Z == nil {
		s.writeError(w, r, fmt.Errorf("%w: x, y and z are required", errBadRequest))
		return
	}
	opts, err := moveOptions(req.SpeedJ, req.AccJ)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pose := dobot.Pose{X: *req.X, Y: *req.Y, Z: *req.Z, R: req.R}
	st, err := s.tracker.MoveToPose(operationContext(r), pose, opts)
	s.respond(w, r, st, err)
}

func (s *Server) handleGrip(w http.ResponseWriter, r *http.Request) {
	var req GripRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.tracker.Grip(operationContext(r), gripper.Action(req.Action))
	s.respond(w, r, st, err)
}

func (s *Server) handleDigitalInput(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	v, err := s.tracker.ReadDigitalInput(r.Context(), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DigitalInputResponse{Index: index, Value: v})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	points := s.tracker.Points()
	out := make([]PointResponse, 0, len(points))
	for _, name := range points.Names() {
		p := points[name].Pose
		out = append(out, PointResponse{Name: name, X: p.X, Y: p.Y, Z: p.Z, R: p.R})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleEvents streams every status change as a JSON message until the
// client disconnects.
func (s *Server) handleEvents(ws *websocket.Conn) {
	log := zerolog.Ctx(ws.Request().Context())
	updates, cancel := s.tracker.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, ws)
		close(gone)
	}()

	log.Debug().Msg("events subscriber connected")
	for {
		select {
		case <-gone:
			log.Debug().Msg("events subscriber left")
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, st); err != nil {
				log.Debug().Err(err).Msg("events send failed")
				return
			}
		}
	}
}

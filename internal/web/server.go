// Package web serves the robot state to external renderers and accepts the
// run and reset triggers over HTTP.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/metalagman/robolab/internal/challenge"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/run"
	"github.com/metalagman/robolab/internal/script"
	"github.com/metalagman/robolab/internal/world"
	"github.com/rs/zerolog/log"
)

const maxProgramBytes = 1 << 20

// Server provides the HTTP handlers around a run coordinator.
type Server struct {
	coord     *run.Coordinator
	catalog   *challenge.Catalog
	writeWait time.Duration
	upgrader  websocket.Upgrader
	tmpl      *template.Template
}

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer creates a new web server.
func NewServer(coord *run.Coordinator, catalog *challenge.Catalog, writeWait time.Duration) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &Server{
		coord:     coord,
		catalog:   catalog,
		writeWait: writeWait,
		tmpl:      tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

// Routes returns the router for the web API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/challenges", s.handleChallenges)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/scenario/{id}", s.handleSelectScenario)
	mux.HandleFunc("DELETE /api/scenario", s.handleClearScenario)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Frame is the observer view of the simulator, sent by /api/state and
// streamed over /ws.
type Frame struct {
	Type          string           `json:"type"`
	Robot         model.RobotState `json:"robot"`
	Readings      world.Readings   `json:"readings"`
	DistanceLabel string           `json:"distance_label"`
	RawColorHex   string           `json:"raw_color_hex"`
	Run           run.Status       `json:"run"`
}

func (s *Server) frame(state model.RobotState) Frame {
	readings := world.Sense(state.X, state.Z, state.Rotation, s.coord.Layout())
	return Frame{
		Type:          "state",
		Robot:         state,
		Readings:      readings,
		DistanceLabel: readings.DistanceLabel(),
		RawColorHex:   world.HexColor(readings.RawColor),
		Run:           s.coord.Status(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Frame     Frame
		Scenarios []challenge.Scenario
	}{
		Frame: s.frame(s.coord.Store().Snapshot()),
	}
	if s.catalog != nil {
		data.Scenarios = s.catalog.All()
	}
	if err := s.tmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.frame(s.coord.Store().Snapshot()))
}

func (s *Server) handleChallenges(w http.ResponseWriter, _ *http.Request) {
	scenarios := []challenge.Scenario{}
	if s.catalog != nil {
		scenarios = s.catalog.All()
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProgramBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	prog, err := script.Parse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h, err := s.coord.StartIn(prog.Challenge, prog)
	if errors.Is(err, run.ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, challenge.ErrUnknownScenario) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": h.ID()})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.coord.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectScenario(w http.ResponseWriter, r *http.Request) {
	err := s.coord.SelectScenario(r.PathValue("id"))
	if errors.Is(err, challenge.ErrUnknownScenario) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearScenario(w http.ResponseWriter, _ *http.Request) {
	s.coord.ClearScenario()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write json response")
	}
}

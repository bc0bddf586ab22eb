package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/gsm"
	"i4.energy/across/gsm_ppp/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server handles incoming HTTP requests for interacting with the
// configured modem session
type Server struct {
	Logger  *zap.Logger
	Session *gsm.Session
	Store   *store.Store
	Bus     *eventBus
}

// Routes wires the API and returns the root handler.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/modem/start", s.handleStart).Methods("POST")
	api.HandleFunc("/modem/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/modem/resume", s.handleResume).Methods("POST")
	api.HandleFunc("/modem/restart", s.handleRestart).Methods("POST")
	api.HandleFunc("/modem/apn", s.handleAPN).Methods("POST")
	api.HandleFunc("/modem/volume", s.handleVolume).Methods("POST")
	api.HandleFunc("/modem/info", s.handleInfo).Methods("GET")
	api.HandleFunc("/modem/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.HandleFunc("/ws", s.handleWS)
	return r
}

// sendError maps engine errors onto HTTP status codes.
func (s *Server) sendError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, gsm.ErrConfig):
		code = http.StatusBadRequest
	case errors.Is(err, gsm.ErrAPNSet):
		code = http.StatusConflict
	case errors.Is(err, gsm.ErrAlreadyClosed):
		code = http.StatusServiceUnavailable
	case errors.Is(err, gsm.ErrTimeout), errors.Is(err, gsm.ErrModem):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"message": err.Error()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Start(); err != nil {
		s.Logger.Error("start failed", zap.Error(err))
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "starting"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Stop(r.Context()); err != nil {
		s.Logger.Error("stop failed", zap.Error(err))
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Resume(r.Context()); err != nil {
		s.Logger.Error("resume failed", zap.Error(err))
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Restart(r.Context()); err != nil {
		s.Logger.Error("restart failed", zap.Error(err))
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (s *Server) handleAPN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APN string `json:"apn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}
	if err := s.Session.SetAPN(req.APN); err != nil {
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "apn": req.APN})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}
	if err := s.Session.SetVolume(req.Level); err != nil {
		s.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "level": req.Level})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.Identity())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50, 1, 500)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	if s.Store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": []store.Record{}, "count": 0})
		return
	}
	events, err := s.Store.RecentEvents(r.Context(), limit)
	if err != nil {
		s.Logger.Error("list events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events, "count": len(events)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWS upgrades the connection and streams session events to the
// client until either side goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, cancel := s.Bus.Subscribe(100)
	defer cancel()

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				s.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

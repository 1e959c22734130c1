package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tasksnap/focusd/internal/config"
	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/history"
	"github.com/tasksnap/focusd/internal/report"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
)

type Server struct {
	config         *config.Config
	runner         *session.Runner
	broadcaster    *Broadcaster
	tracker        *gamification.Tracker
	historyStore   *history.Store
	rooms          *room.Registry
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(cfg *config.Config, runner *session.Runner, broadcaster *Broadcaster) *Server {
	s := &Server{
		config:         cfg,
		runner:         runner,
		broadcaster:    broadcaster,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// SetTracker configures the gamification tracker behind /api/stats,
// /api/achievements and /api/challenges. Must be called before SetupRoutes.
func (s *Server) SetTracker(tracker *gamification.Tracker) {
	s.tracker = tracker
}

// SetHistory configures the store behind /api/history and /api/report.
// Must be called before SetupRoutes.
func (s *Server) SetHistory(store *history.Store) {
	s.historyStore = store
}

// SetRooms configures the registry behind /api/rooms. Must be called before
// SetupRoutes.
func (s *Server) SetRooms(registry *room.Registry) {
	s.rooms = registry
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/achievements", s.handleAchievements)
	mux.HandleFunc("/api/challenges", s.handleChallenges)
	mux.HandleFunc("/api/rooms", s.handleRooms)
	mux.HandleFunc("/api/rooms/", s.handleRoomRoutes)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		log.Printf("ws connection rejected: %v", err)
		conn.Close()
		return
	}
	log.Printf("WebSocket client connected: %s", r.RemoteAddr)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// startSessionRequest is the POST /api/sessions body.
type startSessionRequest struct {
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"` // overrides minutes when set
	Label   string `json:"label"`
	Room    string `json:"room"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.broadcaster.FilterSessions(s.runner.Sessions()))

	case http.MethodPost:
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		d := time.Duration(req.Minutes) * time.Minute
		if req.Seconds > 0 {
			d = time.Duration(req.Seconds) * time.Second
		}
		if req.Room != "" && s.rooms != nil && !s.rooms.Exists(req.Room) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown room %q", req.Room))
			return
		}
		snapshot, err := s.runner.StartSession(d, req.Label, req.Room)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snapshot)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSessionRoutes dispatches /api/sessions/{id}/{cancel|pause|resume}
// and GET /api/sessions/{id}.
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)

	sessionID, err := url.PathUnescape(parts[0])
	if err != nil || sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snapshot, ok := s.runner.Get(sessionID)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, s.broadcaster.applyPrivacy(snapshot))
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var opErr error
	switch parts[1] {
	case "cancel":
		opErr = s.runner.CancelSession(sessionID)
	case "pause":
		opErr = s.runner.PauseSession(sessionID)
	case "resume":
		opErr = s.runner.ResumeSession(sessionID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if opErr != nil {
		writeSessionError(w, opErr)
		return
	}
	if snapshot, ok := s.runner.Get(sessionID); ok {
		writeJSON(w, http.StatusOK, s.broadcaster.applyPrivacy(snapshot))
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "stats not available")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Stats())
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "stats not available")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Achievements())
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "stats not available")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Challenges())
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.rooms == nil {
		writeError(w, http.StatusServiceUnavailable, "rooms not available")
		return
	}
	writeJSON(w, http.StatusOK, s.rooms.List())
}

// joinRoomRequest is the POST /api/rooms/{id}/join body.
type joinRoomRequest struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

func (s *Server) handleRoomRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.rooms == nil {
		writeError(w, http.StatusServiceUnavailable, "rooms not available")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.SplitN(path, "/", 2)
	roomID, err := url.PathUnescape(parts[0])
	if err != nil || roomID == "" {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		state, err := s.rooms.Get(roomID)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participantId required")
		return
	}

	var state room.State
	switch parts[1] {
	case "join":
		state, err = s.rooms.Join(roomID, room.Participant{ID: req.ParticipantID, Name: req.Name})
	case "leave":
		state, err = s.rooms.Leave(roomID, req.ParticipantID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.historyStore == nil {
		writeError(w, http.StatusServiceUnavailable, "history not available")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	entries, err := s.historyStore.Recent(limit)
	if err != nil {
		log.Printf("history query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	entries = s.filterHistory(entries)
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// filterHistory applies the session privacy rules to stored entries so the
// history and report surfaces redact the same way live session payloads do.
func (s *Server) filterHistory(entries []history.Entry) []history.Entry {
	priv := s.broadcaster.privacy
	if priv == nil || priv.IsNoop() {
		return entries
	}
	out := make([]history.Entry, 0, len(entries))
	for _, e := range entries {
		if !priv.IsAllowed(e.Room) {
			continue
		}
		masked := priv.Apply(&session.Session{ID: e.ID, Label: e.Label})
		e.ID = masked.ID
		e.Label = masked.Label
		out = append(out, e)
	}
	return out
}

// handleReport streams the weekly PDF summary. An optional ?week=2026-08-24
// query selects a past week by its Monday; the default is the current week.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.historyStore == nil || s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "report not available")
		return
	}

	weekStart := report.WeekStart(time.Now())
	if raw := r.URL.Query().Get("week"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week must be formatted 2006-01-02")
			return
		}
		weekStart = report.WeekStart(day)
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	entries, err := s.historyStore.Range(weekStart, weekEnd)
	if err != nil {
		log.Printf("report history query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report query failed")
		return
	}
	entries = s.filterHistory(entries)
	days, err := s.historyStore.CompletionsByDay(weekStart)
	if err != nil {
		log.Printf("report day query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report query failed")
		return
	}

	data := report.Data{
		WeekStart: weekStart,
		Entries:   entries,
		Days:      days,
		Streak:    s.tracker.Streak(),
		Garden:    s.tracker.GardenProgress(),
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "focus-week-"+weekStart.Format("2006-01-02")+".pdf"))
	if err := report.WeeklyPDF(w, data); err != nil {
		log.Printf("report render failed: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Health is unauthenticated so process supervisors can probe it.
	active := 0
	for _, sess := range s.runner.Sessions() {
		if !sess.IsTerminal() {
			active++
		}
	}
	writeJSON(w, http.StatusOK, buildHealthReport(active, s.broadcaster.ClientCount()))
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Focusd-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorPayload{Message: msg})
}

// writeSessionError maps runner and engine errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	var stateErr *session.InvalidStateError
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidDuration),
		errors.Is(err, session.ErrDurationNotAllowed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrTooManyActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrUnknownRoom):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrRoomFull), errors.Is(err, room.ErrNotInRoom):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// securityHeaders wraps a handler with standard hardening headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, securityHeaders(mux))
}

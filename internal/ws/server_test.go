package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tasksnap/focusd/internal/clock"
	"github.com/tasksnap/focusd/internal/config"
	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/history"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
)

type testEnv struct {
	srv    *httptest.Server
	runner *session.Runner
	sched  *clock.Manual
}

// multiNotifier mirrors the daemon's notifier fan-out so tests exercise the
// broadcaster and the history recorder together.
type multiNotifier []session.Notifier

func (m multiNotifier) Notify(ev session.Event) {
	for _, n := range m {
		n.Notify(ev)
	}
}

// newTestEnv wires a full server with a manual scheduler so tests drive
// ticks programmatically.
func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Session.AllowCustom = true
	if mutate != nil {
		mutate(cfg)
	}

	store := session.NewStore()
	sched := clock.NewManual()
	runner := session.NewRunner(store, session.RunnerConfig{
		Scheduler:      sched,
		TickInterval:   time.Second,
		AllowedMinutes: cfg.Session.AllowedMinutes,
		AllowCustom:    cfg.Session.AllowCustom,
		MaxConcurrent:  cfg.Session.MaxConcurrent,
	})

	broadcaster := NewBroadcaster(store, cfg.Privacy.NewPrivacyFilter(), time.Millisecond, time.Hour, 0)
	t.Cleanup(broadcaster.Stop)

	statsStore := gamification.NewStore(t.TempDir())
	tracker, eventCh, err := gamification.NewTracker(statsStore, time.Hour)
	if err != nil {
		t.Fatalf("NewTracker error: %v", err)
	}
	runner.SetStatsEvents(eventCh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	histStore, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open error: %v", err)
	}
	t.Cleanup(func() { histStore.Close() })
	runner.SetNotifier(multiNotifier{broadcaster, history.NewRecorder(histStore)})

	rooms, err := room.NewRegistry([]room.Info{
		{ID: "library", Name: "The Library", Capacity: 2},
	})
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	rooms.SetNotifier(broadcaster)

	server := NewServer(cfg, runner, broadcaster)
	server.SetTracker(tracker)
	server.SetHistory(histStore)
	server.SetRooms(rooms)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, runner: runner, sched: sched}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestStartSessionEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.post(t, "/api/sessions", startSessionRequest{Minutes: 25, Label: "deep work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created session.Session
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Error("created session has no ID")
	}
	if created.State != session.Running {
		t.Errorf("State = %s, want running", created.State)
	}
	if created.RemainingSeconds != 1500 {
		t.Errorf("RemainingSeconds = %d, want 1500", created.RemainingSeconds)
	}
}

func TestStartSessionRejectsBadDuration(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Session.AllowCustom = false
	})

	resp := env.post(t, "/api/sessions", startSessionRequest{Minutes: 0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("zero duration status = %d, want 400", resp.StatusCode)
	}

	resp = env.post(t, "/api/sessions", startSessionRequest{Minutes: 23})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("off-preset duration status = %d, want 400", resp.StatusCode)
	}
}

func TestStartSessionUnknownRoom(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.post(t, "/api/sessions", startSessionRequest{Minutes: 25, Room: "attic"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCancelEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	var created session.Session
	decodeBody(t, env.post(t, "/api/sessions", startSessionRequest{Seconds: 900}), &created)

	env.sched.FireN(100)

	resp := env.post(t, "/api/sessions/"+created.ID+"/cancel", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	var cancelled session.Session
	decodeBody(t, resp, &cancelled)
	if cancelled.State != session.Cancelled {
		t.Errorf("State = %s, want cancelled", cancelled.State)
	}
	if cancelled.RemainingSeconds != 800 {
		t.Errorf("RemainingSeconds = %d, want 800", cancelled.RemainingSeconds)
	}

	// Second cancel: the session is no longer live.
	resp = env.post(t, "/api/sessions/"+created.ID+"/cancel", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double cancel status = %d, want 404", resp.StatusCode)
	}
}

func TestPauseResumeEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	var created session.Session
	decodeBody(t, env.post(t, "/api/sessions", startSessionRequest{Seconds: 600}), &created)

	resp := env.post(t, "/api/sessions/"+created.ID+"/pause", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", resp.StatusCode)
	}
	var paused session.Session
	decodeBody(t, resp, &paused)
	if paused.State != session.Paused {
		t.Errorf("State = %s, want paused", paused.State)
	}

	// Pausing a paused session conflicts.
	resp = env.post(t, "/api/sessions/"+created.ID+"/pause", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double pause status = %d, want 409", resp.StatusCode)
	}

	resp = env.post(t, "/api/sessions/"+created.ID+"/resume", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("resume status = %d, want 200", resp.StatusCode)
	}
}

func TestSessionCompletionOverTicks(t *testing.T) {
	env := newTestEnv(t, nil)

	var created session.Session
	decodeBody(t, env.post(t, "/api/sessions", startSessionRequest{Seconds: 5}), &created)

	env.sched.FireN(5)

	resp := env.get(t, "/api/sessions/"+created.ID)
	var final session.Session
	decodeBody(t, resp, &final)
	if final.State != session.Completed {
		t.Errorf("State = %s, want completed", final.State)
	}
	if final.RemainingSeconds != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", final.RemainingSeconds)
	}
}

func TestHistoryEndpointAppliesPrivacy(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Privacy.MaskLabels = true
		cfg.Privacy.HiddenRooms = []string{"library"}
	})

	env.post(t, "/api/sessions", startSessionRequest{Seconds: 2, Label: "secret task"}).Body.Close()
	env.post(t, "/api/sessions", startSessionRequest{Seconds: 2, Room: "library"}).Body.Close()
	env.sched.FireN(2)

	resp := env.get(t, "/api/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, want 200", resp.StatusCode)
	}
	var entries []history.Entry
	decodeBody(t, resp, &entries)

	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1 (hidden-room session filtered out)", len(entries))
	}
	if entries[0].Label == "secret task" {
		t.Error("history label should be masked")
	}
	if entries[0].Room == "library" {
		t.Error("hidden-room entry leaked into history")
	}
}

func TestCancelResponseAppliesPrivacy(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Privacy.MaskLabels = true
	})

	var created session.Session
	decodeBody(t, env.post(t, "/api/sessions", startSessionRequest{Seconds: 300, Label: "secret task"}), &created)
	env.sched.FireN(10)

	resp := env.post(t, "/api/sessions/"+created.ID+"/cancel", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	var cancelled session.Session
	decodeBody(t, resp, &cancelled)
	if cancelled.Label == "secret task" {
		t.Error("cancel response label should be masked")
	}
	if cancelled.State != session.Cancelled {
		t.Errorf("State = %s, want cancelled", cancelled.State)
	}
}

func TestHistoryEndpointRecordsCompletions(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, "/api/sessions", startSessionRequest{Seconds: 3, Label: "read"}).Body.Close()
	env.sched.FireN(3)

	resp := env.get(t, "/api/history")
	var entries []history.Entry
	decodeBody(t, resp, &entries)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Outcome != "completed" {
		t.Errorf("Outcome = %q, want completed", entries[0].Outcome)
	}
	if entries[0].Label != "read" {
		t.Errorf("Label = %q, want read (no privacy configured)", entries[0].Label)
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, "/api/sessions", startSessionRequest{Seconds: 300}).Body.Close()
	env.post(t, "/api/sessions", startSessionRequest{Seconds: 600}).Body.Close()

	resp := env.get(t, "/api/sessions")
	var sessions []*session.Session
	decodeBody(t, resp, &sessions)
	if len(sessions) != 2 {
		t.Errorf("listed %d sessions, want 2", len(sessions))
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	var created session.Session
	decodeBody(t, env.post(t, "/api/sessions", startSessionRequest{Seconds: 3}), &created)
	env.sched.FireN(3)

	// The tracker consumes events asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := env.get(t, "/api/stats")
		var stats gamification.Stats
		decodeBody(t, resp, &stats)
		if stats.TotalCompletions == 1 {
			if stats.TotalSessions != 1 {
				t.Errorf("TotalSessions = %d, want 1", stats.TotalSessions)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats never reflected the completion: %+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAchievementsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/achievements")
	var achievements []gamification.UnlockedAchievement
	decodeBody(t, resp, &achievements)
	if len(achievements) == 0 {
		t.Error("achievement registry should not be empty")
	}
	for _, a := range achievements {
		if a.UnlockedAt != nil {
			t.Errorf("achievement %s unlocked before any activity", a.ID)
		}
	}
}

func TestChallengesEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/challenges")
	var challenges []gamification.ChallengeProgress
	decodeBody(t, resp, &challenges)
	if len(challenges) != 3 {
		t.Errorf("got %d active challenges, want 3", len(challenges))
	}
}

func TestRoomEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/rooms")
	var rooms []room.State
	decodeBody(t, resp, &rooms)
	if len(rooms) != 1 || rooms[0].ID != "library" {
		t.Fatalf("rooms = %+v, want the single library room", rooms)
	}

	resp = env.post(t, "/api/rooms/library/join", joinRoomRequest{ParticipantID: "u1", Name: "Ada"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, want 200", resp.StatusCode)
	}
	var state room.State
	decodeBody(t, resp, &state)
	if len(state.Participants) != 1 {
		t.Errorf("participants = %d, want 1", len(state.Participants))
	}

	// Fill the room, then overflow.
	env.post(t, "/api/rooms/library/join", joinRoomRequest{ParticipantID: "u2"}).Body.Close()
	resp = env.post(t, "/api/rooms/library/join", joinRoomRequest{ParticipantID: "u3"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("overflow join status = %d, want 409", resp.StatusCode)
	}

	resp = env.post(t, "/api/rooms/library/leave", joinRoomRequest{ParticipantID: "u1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("leave status = %d, want 200", resp.StatusCode)
	}

	resp = env.post(t, "/api/rooms/attic/join", joinRoomRequest{ParticipantID: "u1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var report HealthReport
	decodeBody(t, resp, &report)
	if report.Status != "ok" {
		t.Errorf("Status = %q, want ok", report.Status)
	}
	if report.Goroutines == 0 {
		t.Error("Goroutines should be nonzero")
	}
}

func TestReportEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/report")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}

	buf := make([]byte, 8)
	if _, err := resp.Body.Read(buf); err != nil {
		t.Fatalf("reading report body: %v", err)
	}
	if !strings.HasPrefix(string(buf), "%PDF-") {
		t.Errorf("report does not start with a PDF header: %q", buf)
	}
}

func TestReportRejectsBadWeek(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/report?week=notadate")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuthToken(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.AuthToken = "hunter2"
	})

	resp := env.get(t, "/api/sessions")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	// Query parameter.
	resp = env.get(t, "/api/sessions?token=hunter2")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("token query status = %d, want 200", resp.StatusCode)
	}

	// Bearer header.
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("bearer status = %d, want 200", resp2.StatusCode)
	}

	// Health stays open for supervisors.
	resp = env.get(t, "/api/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocketSnapshotOnConnect(t *testing.T) {
	env := newTestEnv(t, nil)

	env.post(t, "/api/sessions", startSessionRequest{Seconds: 300, Label: "reading"}).Body.Close()

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type    MessageType     `json:"type"`
		Payload SnapshotPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != MsgSnapshot {
		t.Fatalf("first frame type = %s, want snapshot", msg.Type)
	}
	if len(msg.Payload.Sessions) != 1 || msg.Payload.Sessions[0].Label != "reading" {
		t.Errorf("snapshot sessions = %+v, want the single running session", msg.Payload.Sessions)
	}
}

func TestWebSocketReceivesCompletionFrame(t *testing.T) {
	env := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	env.post(t, "/api/sessions", startSessionRequest{Seconds: 2}).Body.Close()
	env.sched.FireN(2)

	// Scan frames until the completion arrives; deltas and snapshots may
	// interleave.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg struct {
			Type    MessageType       `json:"type"`
			Payload CompletionPayload `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type == MsgCompletion {
			if msg.Payload.PlannedS != 2 {
				t.Errorf("PlannedS = %d, want 2", msg.Payload.PlannedS)
			}
			return
		}
	}
}

func TestConnectionLimit(t *testing.T) {
	store := session.NewStore()
	b := NewBroadcaster(store, nil, time.Millisecond, time.Hour, 1)
	defer b.Stop()

	srv, conn := dialTestWS(t)
	defer srv.Close()

	if _, err := b.AddClient(conn); err != nil {
		t.Fatalf("first AddClient: %v", err)
	}

	srv2, conn2 := dialTestWS(t)
	defer srv2.Close()

	if _, err := b.AddClient(conn2); err != ErrTooManyConnections {
		t.Fatalf("second AddClient error = %v, want ErrTooManyConnections", err)
	}
	if got := b.ClientCount(); got != 1 {
		t.Errorf("ClientCount = %d, want 1", got)
	}
}

// dialTestWS creates a test HTTP server that upgrades to WebSocket and
// returns the server-side connection.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn := <-connCh:
		return srv, serverConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil
	}
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(inner).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'",
	}

	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
}

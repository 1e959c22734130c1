package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/history"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
)

// HTTPClient makes REST calls to the focusd server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8484").
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StartSession sends POST /api/sessions and returns the created snapshot.
func (c *HTTPClient) StartSession(minutes int, label, roomID string) (*session.Session, error) {
	body := map[string]interface{}{"minutes": minutes, "label": label, "room": roomID}
	var out session.Session
	if err := c.post("/api/sessions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSession sends POST /api/sessions/{id}/cancel.
func (c *HTTPClient) CancelSession(id string) error {
	return c.post("/api/sessions/"+id+"/cancel", struct{}{}, nil)
}

// PauseSession sends POST /api/sessions/{id}/pause.
func (c *HTTPClient) PauseSession(id string) error {
	return c.post("/api/sessions/"+id+"/pause", struct{}{}, nil)
}

// ResumeSession sends POST /api/sessions/{id}/resume.
func (c *HTTPClient) ResumeSession(id string) error {
	return c.post("/api/sessions/"+id+"/resume", struct{}{}, nil)
}

// GetStats fetches /api/stats.
func (c *HTTPClient) GetStats() (*gamification.Stats, error) {
	var s gamification.Stats
	if err := c.get("/api/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAchievements fetches /api/achievements.
func (c *HTTPClient) GetAchievements() ([]gamification.UnlockedAchievement, error) {
	var out []gamification.UnlockedAchievement
	if err := c.get("/api/achievements", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChallenges fetches /api/challenges.
func (c *HTTPClient) GetChallenges() ([]gamification.ChallengeProgress, error) {
	var out []gamification.ChallengeProgress
	if err := c.get("/api/challenges", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRooms fetches /api/rooms.
func (c *HTTPClient) GetRooms() ([]room.State, error) {
	var out []room.State
	if err := c.get("/api/rooms", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinRoom sends POST /api/rooms/{id}/join.
func (c *HTTPClient) JoinRoom(roomID, participantID, name string) (*room.State, error) {
	body := map[string]string{"participantId": participantID, "name": name}
	var out room.State
	if err := c.post("/api/rooms/"+roomID+"/join", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaveRoom sends POST /api/rooms/{id}/leave.
func (c *HTTPClient) LeaveRoom(roomID, participantID string) error {
	body := map[string]string{"participantId": participantID}
	return c.post("/api/rooms/"+roomID+"/leave", body, nil)
}

// GetHistory fetches /api/history.
func (c *HTTPClient) GetHistory(limit int) ([]history.Entry, error) {
	var out []history.Entry
	if err := c.get(fmt.Sprintf("/api/history?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) post(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

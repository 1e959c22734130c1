package session

import (
	"errors"
	"testing"
	"time"
)

func TestConfigure(t *testing.T) {
	e := NewEngine()

	s, err := e.Configure(25*time.Minute, "deep work")
	if err != nil {
		t.Fatalf("Configure error: %v", err)
	}
	if s.State != Idle {
		t.Errorf("State = %v, want Idle", s.State)
	}
	if s.PlannedSeconds != 1500 {
		t.Errorf("PlannedSeconds = %d, want 1500", s.PlannedSeconds)
	}
	if got := s.RemainingFraction(); got != 1.0 {
		t.Errorf("RemainingFraction() = %f, want 1.0", got)
	}
	if s.Label != "deep work" {
		t.Errorf("Label = %q, want %q", s.Label, "deep work")
	}
	if s.ID == "" {
		t.Error("Configure should assign an ID")
	}
}

func TestConfigureInvalidDuration(t *testing.T) {
	e := NewEngine()

	for _, d := range []time.Duration{0, -time.Minute, 500 * time.Millisecond} {
		s, err := e.Configure(d, "")
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("Configure(%v) error = %v, want ErrInvalidDuration", d, err)
		}
		if s != nil {
			t.Errorf("Configure(%v) returned a session despite the error", d)
		}
	}
}

func TestStartFromIdle(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(15*time.Minute, "")

	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if s.State != Running {
		t.Errorf("State = %v, want Running", s.State)
	}
	if s.StartedAt.IsZero() {
		t.Error("Start should stamp StartedAt")
	}
	if s.RemainingSeconds != s.PlannedSeconds {
		t.Errorf("RemainingSeconds = %d, want %d", s.RemainingSeconds, s.PlannedSeconds)
	}
}

func TestStartNonIdleFails(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(15*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	err := e.Start(s)
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("second Start error = %v, want InvalidStateError", err)
	}
	if ise.State != Running {
		t.Errorf("InvalidStateError.State = %v, want Running", ise.State)
	}
}

func TestTickCountsDownToCompletion(t *testing.T) {
	e := NewEngine()
	completions := 0
	e.OnCompleted(func(*Session) { completions++ })

	s, _ := e.Configure(25*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for i := 0; i < 1500; i++ {
		e.Tick(s)
	}

	if s.State != Completed {
		t.Errorf("State = %v after 1500 ticks, want Completed", s.State)
	}
	if s.RemainingSeconds != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", s.RemainingSeconds)
	}
	if s.EndedAt == nil {
		t.Error("EndedAt should be set on completion")
	}
	if completions != 1 {
		t.Errorf("onCompleted fired %d times, want 1", completions)
	}

	// Ticks after completion are no-ops, not errors.
	for i := 0; i < 10; i++ {
		e.Tick(s)
	}
	if s.RemainingSeconds != 0 || s.State != Completed {
		t.Errorf("state changed by post-terminal ticks: remaining=%d state=%v",
			s.RemainingSeconds, s.State)
	}
	if completions != 1 {
		t.Errorf("onCompleted fired %d times after extra ticks, want 1", completions)
	}
}

func TestTickOnIdleIsNoop(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(10*time.Minute, "")

	e.Tick(s)

	if s.State != Idle {
		t.Errorf("State = %v, want Idle", s.State)
	}
	if s.RemainingSeconds != 600 {
		t.Errorf("RemainingSeconds = %d, want 600", s.RemainingSeconds)
	}
}

func TestCancelWhileRunning(t *testing.T) {
	e := NewEngine()
	completions, cancellations := 0, 0
	e.OnCompleted(func(*Session) { completions++ })
	e.OnCancelled(func(*Session) { cancellations++ })

	s, _ := e.Configure(15*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	for i := 0; i < 100; i++ {
		e.Tick(s)
	}

	if err := e.Cancel(s); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if s.State != Cancelled {
		t.Errorf("State = %v, want Cancelled", s.State)
	}
	if s.RemainingSeconds != 800 {
		t.Errorf("RemainingSeconds = %d, want 800 (no further decrement)", s.RemainingSeconds)
	}
	if s.EndedAt == nil {
		t.Error("EndedAt should be set on cancellation")
	}
	if cancellations != 1 {
		t.Errorf("onCancelled fired %d times, want 1", cancellations)
	}
	if completions != 0 {
		t.Errorf("onCompleted fired %d times, want 0", completions)
	}

	// Ticks after cancellation are tolerated no-ops.
	e.Tick(s)
	if s.RemainingSeconds != 800 {
		t.Errorf("RemainingSeconds = %d after post-cancel tick, want 800", s.RemainingSeconds)
	}
}

func TestCancelTwiceFails(t *testing.T) {
	e := NewEngine()
	cancellations := 0
	e.OnCancelled(func(*Session) { cancellations++ })

	s, _ := e.Configure(15*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := e.Cancel(s); err != nil {
		t.Fatalf("first Cancel error: %v", err)
	}

	err := e.Cancel(s)
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("second Cancel error = %v, want InvalidStateError", err)
	}
	if cancellations != 1 {
		t.Errorf("onCancelled fired %d times, want 1", cancellations)
	}
}

func TestCancelCompletedFails(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	for i := 0; i < 60; i++ {
		e.Tick(s)
	}
	if s.State != Completed {
		t.Fatalf("State = %v, want Completed", s.State)
	}

	var ise *InvalidStateError
	if err := e.Cancel(s); !errors.As(err, &ise) {
		t.Errorf("Cancel on completed session error = %v, want InvalidStateError", err)
	}
}

func TestCancelIdleSession(t *testing.T) {
	// A configured-but-never-started session can still be discarded via
	// Cancel; only terminal states reject it.
	e := NewEngine()
	cancellations := 0
	e.OnCancelled(func(*Session) { cancellations++ })

	s, _ := e.Configure(time.Minute, "")
	if err := e.Cancel(s); err != nil {
		t.Fatalf("Cancel on idle session error: %v", err)
	}
	if s.State != Cancelled {
		t.Errorf("State = %v, want Cancelled", s.State)
	}
	if cancellations != 1 {
		t.Errorf("onCancelled fired %d times, want 1", cancellations)
	}
}

func TestPauseResume(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(10*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	for i := 0; i < 30; i++ {
		e.Tick(s)
	}

	if err := e.Pause(s); err != nil {
		t.Fatalf("Pause error: %v", err)
	}
	if s.State != Paused {
		t.Errorf("State = %v, want Paused", s.State)
	}

	// Ticks while paused hold the countdown.
	for i := 0; i < 50; i++ {
		e.Tick(s)
	}
	if s.RemainingSeconds != 570 {
		t.Errorf("RemainingSeconds = %d while paused, want 570", s.RemainingSeconds)
	}

	if err := e.Resume(s); err != nil {
		t.Fatalf("Resume error: %v", err)
	}
	e.Tick(s)
	if s.RemainingSeconds != 569 {
		t.Errorf("RemainingSeconds = %d after resume+tick, want 569", s.RemainingSeconds)
	}
}

func TestPauseResumeInvalidStates(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(time.Minute, "")

	var ise *InvalidStateError
	if err := e.Pause(s); !errors.As(err, &ise) {
		t.Errorf("Pause on idle session error = %v, want InvalidStateError", err)
	}
	if err := e.Resume(s); !errors.As(err, &ise) {
		t.Errorf("Resume on idle session error = %v, want InvalidStateError", err)
	}

	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := e.Resume(s); !errors.As(err, &ise) {
		t.Errorf("Resume on running session error = %v, want InvalidStateError", err)
	}
}

func TestCancelFromPaused(t *testing.T) {
	e := NewEngine()
	s, _ := e.Configure(10*time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := e.Pause(s); err != nil {
		t.Fatalf("Pause error: %v", err)
	}
	if err := e.Cancel(s); err != nil {
		t.Errorf("Cancel from paused error: %v", err)
	}
	if s.State != Cancelled {
		t.Errorf("State = %v, want Cancelled", s.State)
	}
}

func TestEngineTimestamps(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	e := NewEngine()
	e.SetNow(func() time.Time { return now })

	s, _ := e.Configure(time.Minute, "")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !s.StartedAt.Equal(now) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt, now)
	}

	now = now.Add(time.Minute)
	for i := 0; i < 60; i++ {
		e.Tick(s)
	}
	if s.EndedAt == nil || !s.EndedAt.Equal(now) {
		t.Errorf("EndedAt = %v, want %v", s.EndedAt, now)
	}
}

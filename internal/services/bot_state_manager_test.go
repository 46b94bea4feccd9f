package services

import (
	"database/sql"
	"errors"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemSettings(values map[string]string) *memSettings {
	if values == nil {
		values = map[string]string{}
	}
	return &memSettings{values: values}
}

func (m *memSettings) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", sql.ErrNoRows
	}
	return v, nil
}

func (m *memSettings) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func TestBotStateDefaultsToOpen(t *testing.T) {
	m := NewBotStateManager(newMemSettings(nil), nil)
	if got := m.CurrentState(); got != BotStateOpen {
		t.Errorf("missing state = %s, want open", got)
	}

	m = NewBotStateManager(newMemSettings(map[string]string{"bot_state": "exploded"}), nil)
	if got := m.CurrentState(); got != BotStateOpen {
		t.Errorf("corrupt state = %s, want open", got)
	}

	broken := newMemSettings(nil)
	broken.getErr = errors.New("disk I/O error")
	m = NewBotStateManager(broken, nil)
	if got := m.CurrentState(); got != BotStateOpen {
		t.Errorf("unreadable state = %s, want open", got)
	}
}

func TestBotStateRejectsInvalidState(t *testing.T) {
	m := NewBotStateManager(newMemSettings(nil), nil)
	if err := m.SetState("paused"); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestBotStateToggle(t *testing.T) {
	m := NewBotStateManager(newMemSettings(nil), nil)

	state, err := m.Toggle()
	if err != nil || state != BotStateMaintenance {
		t.Fatalf("first toggle = %s, %v", state, err)
	}
	state, err = m.Toggle()
	if err != nil || state != BotStateOpen {
		t.Fatalf("second toggle = %s, %v", state, err)
	}
}

func TestProperty_MaintenanceBlocksOnlyRegularUsers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		adminID := rapid.Int64Range(1, 1_000_000).Draw(rt, "adminID")
		userID := rapid.Int64Range(1, 1_000_000).Draw(rt, "userID")
		state := rapid.SampledFrom([]BotState{BotStateOpen, BotStateMaintenance}).Draw(rt, "state")

		settings := newMemSettings(map[string]string{"maintenance_message": "back soon"})
		m := NewBotStateManager(settings, nil)
		if err := m.SetState(state); err != nil {
			rt.Fatal(err)
		}
		mw := NewBotStateMiddleware(m, adminID)

		allowed, notice := mw.ShouldProcessMessage(userID)
		wantAllowed := userID == adminID || state == BotStateOpen
		if allowed != wantAllowed {
			rt.Fatalf("allowed = %v, want %v (state %s, admin %v)", allowed, wantAllowed, state, userID == adminID)
		}
		if !allowed && notice != "back soon" {
			rt.Errorf("notice = %q, want maintenance message", notice)
		}
		if allowed && notice != "" {
			rt.Errorf("unexpected notice %q", notice)
		}
	})
}

func TestMaintenanceMessageFallback(t *testing.T) {
	m := NewBotStateManager(newMemSettings(nil), nil)
	if m.MaintenanceMessage() != defaultMaintenanceMessage {
		t.Errorf("got %q", m.MaintenanceMessage())
	}
}

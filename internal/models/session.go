package models

import (
	"fmt"
	"strings"
	"time"
)

// Session is the per-user application state shared across screens: who is
// logged in and the profile fragments displayed outside the wizard.
type Session struct {
	UserID           int64
	Role             Role
	Email            string
	Token            string
	DisplayName      string
	AvatarURL        string
	ProfileCompleted []StepKey
	UpdatedAt        time.Time
}

func (s *Session) LoggedIn() bool {
	return s.Token != ""
}

// Label returns the name shown in bot messages.
func (s *Session) Label() string {
	var parts []string
	if s.DisplayName != "" {
		parts = append(parts, s.DisplayName)
	}
	if s.Email != "" {
		parts = append(parts, fmt.Sprintf("<%s>", s.Email))
	}
	parts = append(parts, fmt.Sprintf("[%d]", s.UserID))
	return strings.Join(parts, " ")
}

// Ack is the server acknowledgement of a step save.
type Ack struct {
	Flow           Flow
	Step           StepKey
	Saved          StepPayload
	CompletedSteps []StepKey
	DisplayName    string
	AvatarURL      string
	Scholarship    *Scholarship
}

// PendingFile is a file queued for upload before a step save.
type PendingFile struct {
	Field  string
	Name   string
	Source string
}

// SaveOutcome is one row of the save audit trail.
type SaveOutcome struct {
	ID        int64
	UserID    int64
	Flow      Flow
	Step      StepKey
	EntityID  string
	OK        bool
	Error     string
	CreatedAt time.Time
}

package models

import "time"

// BotTexts are the editable messages the bot sends outside the wizard screens.
type BotTexts struct {
	Welcome       string
	LoginRequired string
	Saved         string
	Submitted     string
	Help          string
	Maintenance   string
}

// Mount records which wizard a chat has open so a restart can reopen it.
type Mount struct {
	UserID    int64
	Flow      Flow
	EntityID  string
	Step      StepKey
	MessageID int
	UpdatedAt time.Time
}

// ChatState is a pending conversational prompt, e.g. a verification code the
// bot is waiting for.
type ChatState struct {
	UserID       int64
	CurrentState string
	Data         map[string]string
}

func (s *ChatState) Value(key string) string {
	if s == nil {
		return ""
	}
	return s.Data[key]
}

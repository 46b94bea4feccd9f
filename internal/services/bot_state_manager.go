package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ad/go-scholar-wizard/internal/db"
	"go.uber.org/zap"
)

type BotState string

const (
	BotStateOpen        BotState = "open"
	BotStateMaintenance BotState = "maintenance"
)

const defaultMaintenanceMessage = "🛠 The bot is under maintenance. Please come back soon."

// SettingsStore is the part of the settings table the state manager needs.
type SettingsStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// BotStateManager switches the bot between serving users and maintenance.
type BotStateManager struct {
	settings SettingsStore
	logger   *zap.Logger
}

func NewBotStateManager(settings SettingsStore, logger *zap.Logger) *BotStateManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotStateManager{settings: settings, logger: logger.Named("bot_state")}
}

// CurrentState never fails: a missing or corrupt value means open.
func (m *BotStateManager) CurrentState() BotState {
	value, err := m.settings.Get(db.SettingBotState)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			m.logger.Warn("read bot state, assuming open", zap.Error(err))
		}
		return BotStateOpen
	}

	state := BotState(value)
	if !state.Valid() {
		m.logger.Warn("invalid bot state stored, assuming open", zap.String("value", value))
		return BotStateOpen
	}
	return state
}

func (m *BotStateManager) SetState(state BotState) error {
	if !state.Valid() {
		return fmt.Errorf("invalid bot state: %s", state)
	}
	if err := m.settings.Set(db.SettingBotState, string(state)); err != nil {
		return fmt.Errorf("set bot state: %w", err)
	}
	m.logger.Info("bot state changed", zap.String("state", string(state)))
	return nil
}

// Toggle flips between open and maintenance and returns the new state.
func (m *BotStateManager) Toggle() (BotState, error) {
	next := BotStateMaintenance
	if m.CurrentState() == BotStateMaintenance {
		next = BotStateOpen
	}
	return next, m.SetState(next)
}

func (m *BotStateManager) IsUserAllowed(userID int64, isAdmin bool) bool {
	return isAdmin || m.CurrentState() == BotStateOpen
}

func (m *BotStateManager) MaintenanceMessage() string {
	message, err := m.settings.Get(db.SettingMaintenance)
	if err != nil || message == "" {
		return defaultMaintenanceMessage
	}
	return message
}

func (s BotState) Valid() bool {
	switch s {
	case BotStateOpen, BotStateMaintenance:
		return true
	default:
		return false
	}
}

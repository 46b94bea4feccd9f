package db

import (
	"database/sql"

	"github.com/ad/go-scholar-wizard/internal/models"
)

const (
	SettingWelcome       = "welcome_message"
	SettingLoginRequired = "login_required_message"
	SettingSaved         = "saved_message"
	SettingSubmitted     = "submitted_message"
	SettingHelp          = "help_message"
	SettingMaintenance   = "maintenance_message"
	SettingBotState      = "bot_state"
)

type SettingsRepository struct {
	queue *DBQueue
}

func NewSettingsRepository(queue *DBQueue) *SettingsRepository {
	return &SettingsRepository{queue: queue}
}

func (r *SettingsRepository) Get(key string) (string, error) {
	return Run(r.queue, func(db *sql.DB) (string, error) {
		var value string
		err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		return value, noRows(err)
	})
}

func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		return nil, err
	})
	return err
}

func (r *SettingsRepository) GetAll() (*models.BotTexts, error) {
	return Run(r.queue, func(db *sql.DB) (*models.BotTexts, error) {
		rows, err := db.Query(`SELECT key, value FROM settings`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		texts := &models.BotTexts{}
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return nil, err
			}
			switch key {
			case SettingWelcome:
				texts.Welcome = value
			case SettingLoginRequired:
				texts.LoginRequired = value
			case SettingSaved:
				texts.Saved = value
			case SettingSubmitted:
				texts.Submitted = value
			case SettingHelp:
				texts.Help = value
			case SettingMaintenance:
				texts.Maintenance = value
			}
		}
		return texts, rows.Err()
	})
}

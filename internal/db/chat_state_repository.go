package db

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ad/go-scholar-wizard/internal/models"
)

type ChatStateRepository struct {
	queue *DBQueue
}

func NewChatStateRepository(queue *DBQueue) *ChatStateRepository {
	return &ChatStateRepository{queue: queue}
}

func (r *ChatStateRepository) Save(state *models.ChatState) error {
	data, err := json.Marshal(state.Data)
	if err != nil {
		return err
	}
	_, err = r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO chat_state (user_id, current_state, data)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				current_state = excluded.current_state,
				data = excluded.data
		`, state.UserID, state.CurrentState, string(data))
		return nil, err
	})
	return err
}

// Get returns nil without error when the chat has no pending prompt.
func (r *ChatStateRepository) Get(userID int64) (*models.ChatState, error) {
	state, err := Run(r.queue, func(db *sql.DB) (*models.ChatState, error) {
		var state models.ChatState
		var data string
		err := db.QueryRow(`
			SELECT user_id, current_state, data FROM chat_state WHERE user_id = ?
		`, userID).Scan(&state.UserID, &state.CurrentState, &data)
		if err != nil {
			return nil, noRows(err)
		}
		if err := json.Unmarshal([]byte(data), &state.Data); err != nil {
			return nil, permanent{err}
		}
		return &state, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return state, err
}

func (r *ChatStateRepository) Clear(userID int64) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`DELETE FROM chat_state WHERE user_id = ?`, userID)
		return nil, err
	})
	return err
}

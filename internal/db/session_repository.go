package db

import (
	"database/sql"
	"errors"
	"encoding/json"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
)

type SessionRepository struct {
	queue *DBQueue
}

func NewSessionRepository(queue *DBQueue) *SessionRepository {
	return &SessionRepository{queue: queue}
}

func (r *SessionRepository) Save(s *models.Session) error {
	completed, err := json.Marshal(stepsOrEmpty(s.ProfileCompleted))
	if err != nil {
		return err
	}
	_, err = r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO sessions (user_id, role, email, token, display_name, avatar_url, profile_completed, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				role = excluded.role,
				email = excluded.email,
				token = excluded.token,
				display_name = excluded.display_name,
				avatar_url = excluded.avatar_url,
				profile_completed = excluded.profile_completed,
				updated_at = excluded.updated_at
		`, s.UserID, string(s.Role), s.Email, s.Token, s.DisplayName, s.AvatarURL, string(completed), time.Now().UTC())
		return nil, err
	})
	return err
}

// Get returns nil without error when the user has no session yet.
func (r *SessionRepository) Get(userID int64) (*models.Session, error) {
	s, err := Run(r.queue, func(db *sql.DB) (*models.Session, error) {
		row := db.QueryRow(`
			SELECT user_id, role, email, token, display_name, avatar_url, profile_completed, updated_at
			FROM sessions WHERE user_id = ?
		`, userID)
		return scanSession(row)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SessionRepository) GetAll() ([]*models.Session, error) {
	return Run(r.queue, func(db *sql.DB) ([]*models.Session, error) {
		rows, err := db.Query(`
			SELECT user_id, role, email, token, display_name, avatar_url, profile_completed, updated_at
			FROM sessions ORDER BY user_id
		`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var sessions []*models.Session
		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, s)
		}
		return sessions, rows.Err()
	})
}

func (r *SessionRepository) Delete(userID int64) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
		return nil, err
	})
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var s models.Session
	var role, completed string
	var updatedAt sql.NullTime
	err := row.Scan(&s.UserID, &role, &s.Email, &s.Token, &s.DisplayName, &s.AvatarURL, &completed, &updatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	s.Role = models.Role(role)
	s.UpdatedAt = updatedAt.Time
	if completed != "" {
		if err := json.Unmarshal([]byte(completed), &s.ProfileCompleted); err != nil {
			return nil, permanent{err}
		}
	}
	return &s, nil
}

func stepsOrEmpty(steps []models.StepKey) []models.StepKey {
	if steps == nil {
		return []models.StepKey{}
	}
	return steps
}

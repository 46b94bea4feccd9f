package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
)

type MountRepository struct {
	queue *DBQueue
}

func NewMountRepository(queue *DBQueue) *MountRepository {
	return &MountRepository{queue: queue}
}

func (r *MountRepository) Save(m *models.Mount) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`
			INSERT INTO wizard_mounts (user_id, flow, entity_id, step, message_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				flow = excluded.flow,
				entity_id = excluded.entity_id,
				step = excluded.step,
				message_id = excluded.message_id,
				updated_at = excluded.updated_at
		`, m.UserID, string(m.Flow), m.EntityID, string(m.Step), m.MessageID, time.Now().UTC())
		return nil, err
	})
	return err
}

// Get returns nil without error when nothing is mounted for the user.
func (r *MountRepository) Get(userID int64) (*models.Mount, error) {
	m, err := Run(r.queue, func(db *sql.DB) (*models.Mount, error) {
		var m models.Mount
		var flow, step string
		var updatedAt sql.NullTime
		err := db.QueryRow(`
			SELECT user_id, flow, entity_id, step, message_id, updated_at
			FROM wizard_mounts WHERE user_id = ?
		`, userID).Scan(&m.UserID, &flow, &m.EntityID, &step, &m.MessageID, &updatedAt)
		if err != nil {
			return nil, noRows(err)
		}
		m.Flow = models.Flow(flow)
		m.Step = models.StepKey(step)
		m.UpdatedAt = updatedAt.Time
		return &m, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *MountRepository) Delete(userID int64) error {
	_, err := r.queue.Execute(func(db *sql.DB) (interface{}, error) {
		_, err := db.Exec(`DELETE FROM wizard_mounts WHERE user_id = ?`, userID)
		return nil, err
	})
	return err
}

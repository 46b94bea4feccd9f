package db

import (
	"database/sql"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
)

// AuditRepository keeps one row per attempted step save.
type AuditRepository struct {
	queue *DBQueue
}

func NewAuditRepository(queue *DBQueue) *AuditRepository {
	return &AuditRepository{queue: queue}
}

func (r *AuditRepository) Record(o *models.SaveOutcome) (int64, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	id, err := Run(r.queue, func(db *sql.DB) (int64, error) {
		res, err := db.Exec(`
			INSERT INTO save_audit (user_id, flow, step, entity_id, ok, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, o.UserID, string(o.Flow), string(o.Step), o.EntityID, o.OK, o.Error, o.CreatedAt)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, err
	}
	o.ID = id
	return id, nil
}

// Recent returns the latest outcomes of a user, newest first.
func (r *AuditRepository) Recent(userID int64, limit int) ([]models.SaveOutcome, error) {
	return Run(r.queue, func(db *sql.DB) ([]models.SaveOutcome, error) {
		rows, err := db.Query(`
			SELECT id, user_id, flow, step, entity_id, ok, error, created_at
			FROM save_audit WHERE user_id = ?
			ORDER BY id DESC LIMIT ?
		`, userID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []models.SaveOutcome
		for rows.Next() {
			var o models.SaveOutcome
			var flow, step string
			if err := rows.Scan(&o.ID, &o.UserID, &flow, &step, &o.EntityID, &o.OK, &o.Error, &o.CreatedAt); err != nil {
				return nil, err
			}
			o.Flow = models.Flow(flow)
			o.Step = models.StepKey(step)
			out = append(out, o)
		}
		return out, rows.Err()
	})
}

func (r *AuditRepository) CountFailures(userID int64) (int, error) {
	return Run(r.queue, func(db *sql.DB) (int, error) {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM save_audit WHERE user_id = ? AND ok = FALSE`, userID).Scan(&n)
		return n, err
	})
}

package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/db"
	"github.com/ad/go-scholar-wizard/internal/models"
)

// StepStats counts audited saves of one step.
type StepStats struct {
	Flow   models.Flow
	Step   models.StepKey
	OK     int
	Failed int
}

// OpenWizard counts users currently parked on a step.
type OpenWizard struct {
	Flow  models.Flow
	Step  models.StepKey
	Users int
}

type AudienceSegments struct {
	Total    int
	Scholars int
	Sponsors int
	SignedIn int
}

type Statistics struct {
	Audience AudienceSegments
	Steps    []StepStats
	Open     []OpenWizard
}

type StatisticsService struct {
	queue *db.DBQueue
}

func NewStatisticsService(queue *db.DBQueue) *StatisticsService {
	return &StatisticsService{queue: queue}
}

func (s *StatisticsService) CalculateStats() (*Statistics, error) {
	audience, err := s.GetAudienceSegments()
	if err != nil {
		return nil, err
	}
	steps, err := s.GetStepStats()
	if err != nil {
		return nil, err
	}
	open, err := s.GetOpenWizards(10)
	if err != nil {
		return nil, err
	}
	return &Statistics{Audience: *audience, Steps: steps, Open: open}, nil
}

func (s *StatisticsService) GetAudienceSegments() (*AudienceSegments, error) {
	return db.Run(s.queue, func(conn *sql.DB) (*AudienceSegments, error) {
		var a AudienceSegments
		err := conn.QueryRow(`
			SELECT COUNT(*),
			       COALESCE(SUM(CASE WHEN role = 'scholar' THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN role = 'sponsor' THEN 1 ELSE 0 END), 0),
			       COALESCE(SUM(CASE WHEN token != '' THEN 1 ELSE 0 END), 0)
			FROM sessions
		`).Scan(&a.Total, &a.Scholars, &a.Sponsors, &a.SignedIn)
		return &a, err
	})
}

// GetStepStats returns save counts per step, steps with the most failures
// first.
func (s *StatisticsService) GetStepStats() ([]StepStats, error) {
	return db.Run(s.queue, func(conn *sql.DB) ([]StepStats, error) {
		rows, err := conn.Query(`
			SELECT flow, step,
			       SUM(CASE WHEN ok THEN 1 ELSE 0 END) AS ok,
			       SUM(CASE WHEN ok THEN 0 ELSE 1 END) AS failed
			FROM save_audit
			GROUP BY flow, step
			ORDER BY failed DESC, ok DESC, flow, step
		`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []StepStats
		for rows.Next() {
			var st StepStats
			if err := rows.Scan(&st.Flow, &st.Step, &st.OK, &st.Failed); err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, rows.Err()
	})
}

// GetOpenWizards reports where users with an open wizard currently are.
func (s *StatisticsService) GetOpenWizards(limit int) ([]OpenWizard, error) {
	return db.Run(s.queue, func(conn *sql.DB) ([]OpenWizard, error) {
		rows, err := conn.Query(`
			SELECT flow, step, COUNT(*) AS users
			FROM wizard_mounts
			GROUP BY flow, step
			ORDER BY users DESC, flow, step
			LIMIT ?
		`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []OpenWizard
		for rows.Next() {
			var o OpenWizard
			if err := rows.Scan(&o.Flow, &o.Step, &o.Users); err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		return out, rows.Err()
	})
}

func FormatStats(st *Statistics) string {
	var sb strings.Builder
	sb.WriteString("📊 Statistics\n\n")
	fmt.Fprintf(&sb, "👥 Users: %d (🎓 %d, 🏛 %d), signed in: %d\n",
		st.Audience.Total, st.Audience.Scholars, st.Audience.Sponsors, st.Audience.SignedIn)

	if len(st.Steps) > 0 {
		sb.WriteString("\n💾 Saves per step\n")
		for _, s := range st.Steps {
			fmt.Fprintf(&sb, "%s / %s: ✅ %d", FlowTitle(s.Flow), FormatCode(string(s.Step)), s.OK)
			if s.Failed > 0 {
				fmt.Fprintf(&sb, " ❌ %d", s.Failed)
			}
			sb.WriteString("\n")
		}
	}

	if len(st.Open) > 0 {
		sb.WriteString("\n📍 Open wizards\n")
		for _, o := range st.Open {
			fmt.Fprintf(&sb, "%s / %s: %s\n", FlowTitle(o.Flow), FormatCode(string(o.Step)), plural(o.Users, "user"))
		}
	}
	return sb.String()
}

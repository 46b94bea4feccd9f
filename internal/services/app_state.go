package services

import (
	"sync"

	"github.com/ad/go-scholar-wizard/internal/models"
	"go.uber.org/zap"
)

// SessionStore persists sessions between restarts.
type SessionStore interface {
	Get(userID int64) (*models.Session, error)
	Save(s *models.Session) error
}

// Action is a change to a user's application state.
type Action interface {
	apply(s *models.Session)
}

// LoggedIn replaces the credentials and identity of the session.
type LoggedIn struct {
	Role        models.Role
	Email       string
	Token       string
	DisplayName string
	AvatarURL   string
}

func (a LoggedIn) apply(s *models.Session) {
	s.Role = a.Role
	s.Email = a.Email
	s.Token = a.Token
	s.DisplayName = a.DisplayName
	s.AvatarURL = a.AvatarURL
	s.ProfileCompleted = nil
}

type LoggedOut struct{}

func (LoggedOut) apply(s *models.Session) {
	*s = models.Session{UserID: s.UserID}
}

// RoleChosen records the role picked before signing in.
type RoleChosen struct {
	Role models.Role
}

func (a RoleChosen) apply(s *models.Session) {
	if s.Token == "" {
		s.Role = a.Role
	}
}

// StepSaved merges a save acknowledgement. Only profile saves carry
// session-wide fragments.
type StepSaved struct {
	Ack *models.Ack
}

func (a StepSaved) apply(s *models.Session) {
	if a.Ack == nil || a.Ack.Flow.Gated() {
		return
	}
	if a.Ack.CompletedSteps != nil {
		s.ProfileCompleted = append([]models.StepKey(nil), a.Ack.CompletedSteps...)
	}
	if a.Ack.DisplayName != "" {
		s.DisplayName = a.Ack.DisplayName
	}
	if a.Ack.AvatarURL != "" {
		s.AvatarURL = a.Ack.AvatarURL
	}
}

// Reduce returns the session after applying the action. The input is not
// modified.
func Reduce(s models.Session, a Action) models.Session {
	s.ProfileCompleted = append([]models.StepKey(nil), s.ProfileCompleted...)
	a.apply(&s)
	return s
}

// AppStateStore holds the per-user sessions shared by every screen. Writes go
// through Dispatch; readers get copies.
type AppStateStore struct {
	mu       sync.Mutex
	repo     SessionStore
	sessions map[int64]models.Session
	logger   *zap.Logger
}

func NewAppStateStore(repo SessionStore, logger *zap.Logger) *AppStateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppStateStore{
		repo:     repo,
		sessions: make(map[int64]models.Session),
		logger:   logger.Named("state"),
	}
}

// Snapshot returns a copy of the user's session. Unknown users get an empty
// logged-out session.
func (s *AppStateStore) Snapshot(userID int64) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked(userID)
	if err != nil {
		return models.Session{}, err
	}
	return Reduce(sess, noop{}), nil
}

// Dispatch applies the action, persists the result and returns it. The
// in-memory state only changes when persisting succeeded.
func (s *AppStateStore) Dispatch(userID int64, a Action) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.loadLocked(userID)
	if err != nil {
		return models.Session{}, err
	}
	next := Reduce(sess, a)
	if err := s.repo.Save(&next); err != nil {
		s.logger.Error("persist session", zap.Int64("user_id", userID), zap.Error(err))
		return sess, err
	}
	s.sessions[userID] = next
	s.logger.Debug("session updated", zap.Int64("user_id", userID), zap.String("action", actionName(a)))
	return Reduce(next, noop{}), nil
}

func (s *AppStateStore) loadLocked(userID int64) (models.Session, error) {
	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}
	stored, err := s.repo.Get(userID)
	if err != nil {
		return models.Session{}, err
	}
	sess := models.Session{UserID: userID}
	if stored != nil {
		sess = *stored
	}
	s.sessions[userID] = sess
	return sess, nil
}

type noop struct{}

func (noop) apply(*models.Session) {}

func actionName(a Action) string {
	switch a.(type) {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	case RoleChosen:
		return "role_chosen"
	case StepSaved:
		return "step_saved"
	}
	return "unknown"
}

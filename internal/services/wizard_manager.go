package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"github.com/ad/go-scholar-wizard/internal/remote"
	"github.com/ad/go-scholar-wizard/internal/wizard"
	"go.uber.org/zap"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrWrongRole     = errors.New("flow not available for this role")
	ErrNotMounted    = errors.New("no wizard open")
	ErrNoEntity      = errors.New("scholarship not created yet")
)

type AuditRecorder interface {
	Record(o *models.SaveOutcome) (int64, error)
}

type MountStore interface {
	Get(userID int64) (*models.Mount, error)
	Save(m *models.Mount) error
	Delete(userID int64) error
}

// Mounted is a wizard opened by one user.
type Mounted struct {
	Wizard    *wizard.Wizard
	Client    *apiclient.Client
	MessageID int

	userID      int64
	scholarship *remote.ScholarshipAdapter
}

// EntityID returns the scholarship id of a scholarship wizard.
func (m *Mounted) EntityID() string {
	if m.scholarship == nil {
		return ""
	}
	return m.scholarship.ID()
}

// WizardManager owns the wizards mounted per user and connects them to the
// application state, the audit trail and the persisted mounts.
type WizardManager struct {
	mu      sync.Mutex
	mounted map[int64]*Mounted

	reg    *registry.Registry
	api    *apiclient.Client
	files  remote.FileSource
	store  *AppStateStore
	audit  AuditRecorder
	mounts MountStore
	logger *zap.Logger
}

func NewWizardManager(reg *registry.Registry, api *apiclient.Client, files remote.FileSource, store *AppStateStore, audit AuditRecorder, mounts MountStore, logger *zap.Logger) *WizardManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardManager{
		mounted: make(map[int64]*Mounted),
		reg:     reg,
		api:     api,
		files:   files,
		store:   store,
		audit:   audit,
		mounts:  mounts,
		logger:  logger.Named("wizards"),
	}
}

// Mount opens a wizard for the user, replacing any open one. An empty step
// resumes where the user left off. A *models.FetchError is returned together
// with the mounted wizard when the step's saved values could not be loaded.
func (m *WizardManager) Mount(ctx context.Context, userID int64, flow models.Flow, entityID string, step models.StepKey) (*Mounted, error) {
	sess, err := m.store.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	if !sess.LoggedIn() {
		return nil, ErrLoginRequired
	}
	if flow.Role() != sess.Role {
		return nil, fmt.Errorf("%w: %s", ErrWrongRole, flow)
	}

	client := m.api.WithToken(sess.Token)
	mt := &Mounted{Client: client, userID: userID}
	opts := wizard.Options{
		Flow:     flow,
		Registry: m.reg,
		Logger:   m.logger.With(zap.Int64("user_id", userID)),
		OnSaved:  m.onSaved(userID),
	}

	if flow.Gated() {
		if entityID != "" {
			s, err := client.GetScholarship(ctx, entityID)
			if err != nil {
				return nil, &models.FetchError{Step: step, Err: err}
			}
			opts.Scholarship = s
		}
		mt.scholarship = remote.NewScholarshipAdapter(client, m.files, entityID, m.logger)
		opts.Syncer = mt.scholarship
	} else {
		opts.Syncer = remote.NewProfileAdapter(client, m.files, flow, m.logger)
		opts.Completed = sess.ProfileCompleted
		if step == "" {
			step = wizard.ResumeStep(m.reg.Keys(flow), sess.ProfileCompleted)
		}
	}

	w, err := wizard.New(opts)
	if err != nil {
		return nil, err
	}
	mt.Wizard = w

	var loadErr error
	if step != "" {
		if _, _, loadErr = w.Activate(ctx, step); loadErr != nil {
			var ferr *models.FetchError
			if !errors.As(loadErr, &ferr) {
				return nil, loadErr
			}
		}
	}

	m.mu.Lock()
	if prev, ok := m.mounted[userID]; ok {
		mt.MessageID = prev.MessageID
	}
	m.mounted[userID] = mt
	m.mu.Unlock()

	m.persist(mt)
	m.logger.Info("wizard mounted", zap.Int64("user_id", userID), zap.String("flow", string(flow)), zap.String("step", string(w.Active())))
	return mt, loadErr
}

// Get returns the user's open wizard, reopening a persisted one after a
// restart.
func (m *WizardManager) Get(ctx context.Context, userID int64) (*Mounted, error) {
	m.mu.Lock()
	mt, ok := m.mounted[userID]
	m.mu.Unlock()
	if ok {
		return mt, nil
	}

	stored, err := m.mounts.Get(userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotMounted
	}
	mt, err = m.Mount(ctx, userID, stored.Flow, stored.EntityID, stored.Step)
	var ferr *models.FetchError
	if err != nil && !(errors.As(err, &ferr) && mt != nil) {
		if errors.Is(err, ErrLoginRequired) || errors.Is(err, ErrWrongRole) {
			_ = m.mounts.Delete(userID)
			return nil, ErrNotMounted
		}
		return nil, err
	}
	m.mu.Lock()
	mt.MessageID = stored.MessageID
	m.mu.Unlock()
	return mt, nil
}

func (m *WizardManager) Unmount(userID int64) error {
	m.mu.Lock()
	delete(m.mounted, userID)
	m.mu.Unlock()
	return m.mounts.Delete(userID)
}

// SetMessage records which chat message shows the user's wizard screen.
func (m *WizardManager) SetMessage(mt *Mounted, messageID int) {
	m.mu.Lock()
	mt.MessageID = messageID
	m.mu.Unlock()
	m.persist(mt)
}

// Save saves the active step and, when advance is set, moves to the next
// step once the save succeeded. Every attempt that reached the backend is
// audited.
func (m *WizardManager) Save(ctx context.Context, mt *Mounted, advance bool) (models.StepKey, error) {
	key := mt.Wizard.Active()
	var err error
	if advance {
		_, err = mt.Wizard.SaveAndNext(ctx, nil)
	} else {
		err = mt.Wizard.Save(ctx, nil)
	}
	var ferr *models.FetchError
	if errors.As(err, &ferr) {
		// The save went through; only loading the next step failed.
		m.record(mt, key, nil)
	} else {
		m.record(mt, key, err)
	}
	m.persist(mt)
	return mt.Wizard.Active(), err
}

// Submit submits the mounted scholarship for review.
func (m *WizardManager) Submit(ctx context.Context, mt *Mounted) (*models.Scholarship, error) {
	s, err := mt.Wizard.Submit(ctx)
	m.record(mt, "submit", err)
	m.persist(mt)
	return s, err
}

// Fund starts a payment for the mounted scholarship.
func (m *WizardManager) Fund(ctx context.Context, mt *Mounted) (*models.FundingInit, error) {
	id := mt.EntityID()
	if id == "" {
		return nil, ErrNoEntity
	}
	return mt.Client.InitFunding(ctx, id)
}

// VerifyPayment confirms a payment and, when it belongs to the mounted
// scholarship, reloads the entity so the gate sees the paid funding.
func (m *WizardManager) VerifyPayment(ctx context.Context, mt *Mounted, reference string) (*models.PaymentVerification, error) {
	v, err := mt.Client.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	if v.Paid() && v.ScholarshipID == mt.EntityID() {
		if err := mt.Wizard.Refresh(ctx); err != nil {
			return v, err
		}
		m.persist(mt)
	}
	return v, nil
}

func (m *WizardManager) onSaved(userID int64) func(*models.Ack) {
	return func(ack *models.Ack) {
		if _, err := m.store.Dispatch(userID, StepSaved{Ack: ack}); err != nil {
			m.logger.Warn("merge save into session", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

func (m *WizardManager) record(mt *Mounted, step models.StepKey, err error) {
	if errors.Is(err, models.ErrSaveInFlight) {
		return
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return
	}
	o := &models.SaveOutcome{
		UserID:   mt.userID,
		Flow:     mt.Wizard.Flow(),
		Step:     step,
		EntityID: mt.EntityID(),
		OK:       err == nil,
	}
	if err != nil {
		o.Error = err.Error()
	}
	if _, err := m.audit.Record(o); err != nil {
		m.logger.Warn("audit save", zap.Int64("user_id", mt.userID), zap.Error(err))
	}
}

func (m *WizardManager) persist(mt *Mounted) {
	m.mu.Lock()
	if m.mounted[mt.userID] != mt {
		m.mu.Unlock()
		return
	}
	mount := &models.Mount{
		UserID:    mt.userID,
		Flow:      mt.Wizard.Flow(),
		EntityID:  mt.EntityID(),
		Step:      mt.Wizard.Active(),
		MessageID: mt.MessageID,
	}
	m.mu.Unlock()
	if err := m.mounts.Save(mount); err != nil {
		m.logger.Warn("persist mount", zap.Int64("user_id", mt.userID), zap.Error(err))
	}
}

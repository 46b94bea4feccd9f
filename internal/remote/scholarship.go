package remote

import (
	"context"
	"sync"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"go.uber.org/zap"
)

type ScholarshipAPI interface {
	Uploader
	CreateScholarship(ctx context.Context, patch apiclient.ScholarshipPatch) (*models.Scholarship, error)
	GetScholarship(ctx context.Context, id string) (*models.Scholarship, error)
	PatchScholarship(ctx context.Context, id string, patch apiclient.ScholarshipPatch) (*models.Scholarship, error)
	SubmitScholarship(ctx context.Context, id string) (*models.Scholarship, error)
}

// ScholarshipAdapter syncs the steps of one scholarship entity. The entity is
// created on the first save when no id is known yet.
type ScholarshipAdapter struct {
	api    ScholarshipAPI
	files  FileSource
	logger *zap.Logger

	mu sync.Mutex
	id string
}

func NewScholarshipAdapter(api ScholarshipAPI, files FileSource, id string, logger *zap.Logger) *ScholarshipAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScholarshipAdapter{
		api:    api,
		files:  files,
		id:     id,
		logger: logger.Named("remote").With(zap.String("flow", string(models.FlowScholarship))),
	}
}

func (a *ScholarshipAdapter) ID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

func (a *ScholarshipAdapter) FetchStep(ctx context.Context, key models.StepKey) (models.StepPayload, error) {
	id := a.ID()
	if id == "" {
		return registry.New(models.FlowScholarship, key)
	}
	s, err := a.api.GetScholarship(ctx, id)
	if err != nil {
		return nil, &models.FetchError{Step: key, Err: err}
	}
	if p := s.Payload(key); p != nil {
		return p, nil
	}
	return registry.New(models.FlowScholarship, key)
}

func (a *ScholarshipAdapter) SaveStep(ctx context.Context, key models.StepKey, p models.StepPayload, files []models.PendingFile) (*models.Ack, error) {
	payload, err := attachUploads(ctx, key, p, files, a.api, a.files)
	if err != nil {
		a.logger.Warn("upload failed", zap.String("step", string(key)), zap.Int("files", len(files)), zap.Error(err))
		return nil, err
	}
	patch, err := apiclient.PatchFor(payload)
	if err != nil {
		return nil, &models.SaveError{Step: key, Err: err}
	}

	s, err := a.write(ctx, patch)
	if err != nil {
		return nil, &models.SaveError{Step: key, Err: err}
	}

	saved := s.Payload(key)
	if saved == nil {
		saved = payload
	}
	a.logger.Debug("step saved", zap.String("step", string(key)), zap.String("scholarship", s.ID))
	return &models.Ack{
		Flow:        models.FlowScholarship,
		Step:        key,
		Saved:       saved,
		Scholarship: s,
	}, nil
}

// write creates the entity on first use and patches it afterwards. Creation
// holds the lock so concurrent first saves cannot create two entities.
func (a *ScholarshipAdapter) write(ctx context.Context, patch apiclient.ScholarshipPatch) (*models.Scholarship, error) {
	a.mu.Lock()
	if a.id == "" {
		defer a.mu.Unlock()
		s, err := a.api.CreateScholarship(ctx, patch)
		if err != nil {
			return nil, err
		}
		a.id = s.ID
		a.logger.Info("scholarship created", zap.String("scholarship", s.ID))
		return s, nil
	}
	id := a.id
	a.mu.Unlock()
	return a.api.PatchScholarship(ctx, id, patch)
}

// Reload returns the current entity, or an empty draft before the first save.
func (a *ScholarshipAdapter) Reload(ctx context.Context) (*models.Scholarship, error) {
	id := a.ID()
	if id == "" {
		return &models.Scholarship{Status: models.ScholarshipDraft}, nil
	}
	return a.api.GetScholarship(ctx, id)
}

func (a *ScholarshipAdapter) Submit(ctx context.Context) (*models.Scholarship, error) {
	id := a.ID()
	if id == "" {
		return nil, apiclient.ErrNotFound
	}
	return a.api.SubmitScholarship(ctx, id)
}

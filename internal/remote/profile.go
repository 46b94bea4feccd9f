package remote

import (
	"context"
	"fmt"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"go.uber.org/zap"
)

type ProfileAPI interface {
	Uploader
	GetProfileStep(ctx context.Context, role models.Role, step models.StepKey) (*apiclient.ProfileStep, error)
	PatchProfileStep(ctx context.Context, role models.Role, step models.StepKey, payload any) (*apiclient.ProfileStep, error)
}

// ProfileAdapter syncs scholar and sponsor profile steps.
type ProfileAdapter struct {
	api    ProfileAPI
	files  FileSource
	flow   models.Flow
	logger *zap.Logger
}

func NewProfileAdapter(api ProfileAPI, files FileSource, flow models.Flow, logger *zap.Logger) *ProfileAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileAdapter{
		api:    api,
		files:  files,
		flow:   flow,
		logger: logger.Named("remote").With(zap.String("flow", string(flow))),
	}
}

func (a *ProfileAdapter) FetchStep(ctx context.Context, key models.StepKey) (models.StepPayload, error) {
	resp, err := a.api.GetProfileStep(ctx, a.flow.Role(), key)
	if err != nil {
		return nil, &models.FetchError{Step: key, Err: err}
	}
	p, err := registry.Decode(a.flow, key, resp.Data)
	if err != nil {
		return nil, &models.FetchError{Step: key, Err: err}
	}
	return p, nil
}

// SaveStep uploads pending files, then persists the step. No JSON request is
// sent when any upload fails.
func (a *ProfileAdapter) SaveStep(ctx context.Context, key models.StepKey, p models.StepPayload, files []models.PendingFile) (*models.Ack, error) {
	payload, err := attachUploads(ctx, key, p, files, a.api, a.files)
	if err != nil {
		a.logger.Warn("upload failed", zap.String("step", string(key)), zap.Int("files", len(files)), zap.Error(err))
		return nil, err
	}

	resp, err := a.api.PatchProfileStep(ctx, a.flow.Role(), key, payload)
	if err != nil {
		return nil, &models.SaveError{Step: key, Err: err}
	}

	saved := payload
	if len(resp.Data) > 0 {
		if saved, err = registry.Decode(a.flow, key, resp.Data); err != nil {
			return nil, &models.SaveError{Step: key, Err: fmt.Errorf("decode ack: %w", err)}
		}
	}
	ack := &models.Ack{
		Flow:           a.flow,
		Step:           key,
		Saved:          saved,
		CompletedSteps: resp.CompletedSteps,
	}
	if resp.User != nil {
		ack.DisplayName = resp.User.Name
		ack.AvatarURL = resp.User.AvatarURL
	}
	a.logger.Debug("step saved", zap.String("step", string(key)), zap.Int("completed", len(resp.CompletedSteps)))
	return ack, nil
}

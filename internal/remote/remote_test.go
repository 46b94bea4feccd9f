package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeAPI struct {
	mu        sync.Mutex
	uploads   []string
	patches   int32
	creates   int32
	failOn    string
	patchErr  error
	profile   map[models.StepKey]json.RawMessage
	scholar   *models.Scholarship
	lastPatch apiclient.ScholarshipPatch
}

func (f *fakeAPI) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if name == f.failOn {
		return "", errors.New("HTTP 500")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, name)
	return "https://cdn.example/" + name, nil
}

func (f *fakeAPI) GetProfileStep(_ context.Context, _ models.Role, step models.StepKey) (*apiclient.ProfileStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &apiclient.ProfileStep{Data: f.profile[step]}, nil
}

func (f *fakeAPI) PatchProfileStep(_ context.Context, _ models.Role, step models.StepKey, payload any) (*apiclient.ProfileStep, error) {
	atomic.AddInt32(&f.patches, 1)
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	data, _ := json.Marshal(payload)
	return &apiclient.ProfileStep{
		Data:           data,
		CompletedSteps: []models.StepKey{step},
		User:           &apiclient.User{Name: "Ada Obi", AvatarURL: "https://cdn.example/a.png"},
	}, nil
}

func (f *fakeAPI) CreateScholarship(_ context.Context, patch apiclient.ScholarshipPatch) (*models.Scholarship, error) {
	atomic.AddInt32(&f.creates, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPatch = patch
	f.scholar = &models.Scholarship{ID: "sch-1", Status: models.ScholarshipDraft, Details: patch.Details}
	f.scholar.Completed.Details = patch.Details != nil
	c := *f.scholar
	return &c, nil
}

func (f *fakeAPI) GetScholarship(_ context.Context, id string) (*models.Scholarship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scholar == nil || f.scholar.ID != id {
		return nil, apiclient.ErrNotFound
	}
	c := *f.scholar
	return &c, nil
}

func (f *fakeAPI) PatchScholarship(_ context.Context, id string, patch apiclient.ScholarshipPatch) (*models.Scholarship, error) {
	atomic.AddInt32(&f.patches, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPatch = patch
	if patch.Eligibility != nil {
		f.scholar.Eligibility = patch.Eligibility
		f.scholar.Completed.Eligibility = true
	}
	if patch.Documents != nil {
		f.scholar.Documents = patch.Documents
		f.scholar.Completed.Documents = true
	}
	c := *f.scholar
	return &c, nil
}

func (f *fakeAPI) SubmitScholarship(_ context.Context, id string) (*models.Scholarship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scholar.Status = models.ScholarshipSubmitted
	c := *f.scholar
	return &c, nil
}

type memFiles map[string]string

func (m memFiles) Open(_ context.Context, f models.PendingFile) (io.ReadCloser, error) {
	body, ok := m[f.Source]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func documentFiles() []models.PendingFile {
	return []models.PendingFile{
		{Field: "cv", Name: "a.pdf", Source: "f1"},
		{Field: "idDocument", Name: "b.pdf", Source: "f2"},
		{Field: "certificates", Name: "c.pdf", Source: "f3"},
	}
}

var files = memFiles{"f1": "cv", "f2": "id", "f3": "cert"}

func TestSaveStepUploadFailureSendsNoJSON(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{failOn: "c.pdf"}
	a := NewProfileAdapter(api, files, models.FlowScholarProfile, nil)
	draft := &models.ScholarDocuments{}

	ack, err := a.SaveStep(context.Background(), models.StepDocuments, draft, documentFiles())

	require.Nil(t, ack)
	var uerr *models.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "c.pdf", uerr.File)
	assert.Equal(t, models.StepDocuments, uerr.Step)
	assert.Zero(t, atomic.LoadInt32(&api.patches), "JSON save must not be sent after an upload failure")
	assert.Empty(t, draft.CV, "caller payload must not be modified")
}

func TestSaveStepAttachesUploadedURLs(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{}
	a := NewProfileAdapter(api, files, models.FlowScholarProfile, nil)

	ack, err := a.SaveStep(context.Background(), models.StepDocuments, &models.ScholarDocuments{}, documentFiles())
	require.NoError(t, err)

	docs := ack.Saved.(*models.ScholarDocuments)
	assert.Equal(t, "https://cdn.example/a.pdf", docs.CV)
	assert.Equal(t, "https://cdn.example/b.pdf", docs.IDDocument)
	assert.Equal(t, []string{"https://cdn.example/c.pdf"}, docs.Certificates)
	assert.Len(t, api.uploads, 3)
	assert.EqualValues(t, 1, api.patches)
	assert.Equal(t, "Ada Obi", ack.DisplayName)
	assert.Equal(t, []models.StepKey{models.StepDocuments}, ack.CompletedSteps)
}

func TestSaveStepMissingFileSource(t *testing.T) {
	api := &fakeAPI{}
	a := NewProfileAdapter(api, memFiles{}, models.FlowScholarProfile, nil)

	_, err := a.SaveStep(context.Background(), models.StepDocuments, &models.ScholarDocuments{}, documentFiles()[:1])
	var uerr *models.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Zero(t, atomic.LoadInt32(&api.patches))
}

func TestSaveStepWrapsPatchFailure(t *testing.T) {
	api := &fakeAPI{patchErr: &apiclient.APIError{Status: 500, Code: "Internal Server Error"}}
	a := NewProfileAdapter(api, nil, models.FlowScholarProfile, nil)

	_, err := a.SaveStep(context.Background(), models.StepPersonal, &models.ScholarPersonal{FirstName: "A", LastName: "B"}, nil)
	var serr *models.SaveError
	require.ErrorAs(t, err, &serr)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
}

func TestFetchStepDecodesProfile(t *testing.T) {
	api := &fakeAPI{profile: map[models.StepKey]json.RawMessage{
		models.StepAddress: json.RawMessage(`{"homeAddress":"12 Example Rd","city":"Accra"}`),
		models.StepContact: json.RawMessage(`{"email": 42}`),
	}}
	a := NewProfileAdapter(api, nil, models.FlowScholarProfile, nil)

	p, err := a.FetchStep(context.Background(), models.StepAddress)
	require.NoError(t, err)
	assert.Equal(t, "12 Example Rd", p.(*models.ScholarAddress).HomeAddress)

	p, err = a.FetchStep(context.Background(), models.StepEducation)
	require.NoError(t, err, "missing step decodes to an empty payload")
	assert.IsType(t, &models.ScholarEducation{}, p)

	_, err = a.FetchStep(context.Background(), models.StepContact)
	var ferr *models.FetchError
	require.ErrorAs(t, err, &ferr)
}

func TestScholarshipAdapterLifecycle(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	a := NewScholarshipAdapter(api, files, "", nil)

	s, err := a.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScholarshipDraft, s.Status)

	p, err := a.FetchStep(ctx, models.StepDetails)
	require.NoError(t, err)
	assert.IsType(t, &models.ScholarshipDetails{}, p)

	ack, err := a.SaveStep(ctx, models.StepDetails, &models.ScholarshipDetails{Title: "STEM"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sch-1", a.ID())
	assert.True(t, ack.Scholarship.Completed.Details)
	assert.Equal(t, models.StepDetails, api.lastPatch.MarkStep)

	_, err = a.SaveStep(ctx, models.StepEligibility, &models.ScholarshipEligibility{MinGPA: 3.5}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, api.creates)
	assert.EqualValues(t, 1, api.patches)
	assert.NotNil(t, api.lastPatch.Eligibility)
	assert.Nil(t, api.lastPatch.Details, "patch must carry only the saved step")

	ack, err = a.SaveStep(ctx, models.StepDocuments, &models.ScholarshipDocuments{RequiredDocuments: []string{"cv"}},
		[]models.PendingFile{{Field: "template", Name: "t.docx", Source: "f1"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/t.docx", ack.Saved.(*models.ScholarshipDocuments).Template)

	s, err = a.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScholarshipSubmitted, s.Status)
}

func TestScholarshipAdapterSubmitWithoutEntity(t *testing.T) {
	a := NewScholarshipAdapter(&fakeAPI{}, nil, "", nil)
	_, err := a.Submit(context.Background())
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProfile struct {
	mu       sync.Mutex
	flow     models.Flow
	stored   map[models.StepKey]models.StepPayload
	fetched  []models.StepKey
	saved    []models.StepKey
	files    [][]models.PendingFile
	fetchErr error
	saveErr  error
	entered  chan struct{}
	release  chan struct{}
}

func newFakeProfile() *fakeProfile {
	return &fakeProfile{flow: models.FlowScholarProfile, stored: make(map[models.StepKey]models.StepPayload)}
}

func (f *fakeProfile) FetchStep(_ context.Context, key models.StepKey) (models.StepPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, key)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if p, ok := f.stored[key]; ok {
		return p, nil
	}
	return registry.New(f.flow, key)
}

func (f *fakeProfile) SaveStep(_ context.Context, key models.StepKey, p models.StepPayload, files []models.PendingFile) (*models.Ack, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, key)
	f.files = append(f.files, files)
	if f.saveErr != nil {
		return nil, &models.SaveError{Step: key, Err: f.saveErr}
	}
	f.stored[key] = p
	return &models.Ack{Step: key, Saved: p, CompletedSteps: []models.StepKey{key}}, nil
}

func (f *fakeProfile) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func newProfileWizard(t *testing.T, flow models.Flow, s Syncer) *Wizard {
	t.Helper()
	w, err := New(Options{Flow: flow, Registry: registry.MustLoad(), Syncer: s})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestWizardNextCachesValuesAndAdvances(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)

	if _, _, err := w.Activate(ctx, models.StepAddress); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	active, err := w.Next(ctx, &models.ScholarAddress{HomeAddress: "12 Example Rd"})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if active != models.StepContact || w.Active() != models.StepContact {
		t.Errorf("active = %s, want contact", active)
	}
	got, ok := w.Draft(models.StepAddress)
	if !ok || got.(*models.ScholarAddress).HomeAddress != "12 Example Rd" {
		t.Errorf("cache.address = %#v", got)
	}
	if syncer.saveCount() != 0 {
		t.Error("plain navigation must not save")
	}
}

func TestWizardActivateUnknownRedirects(t *testing.T) {
	syncer := newFakeProfile()
	syncer.flow = models.FlowSponsorProfile
	w := newProfileWizard(t, models.FlowSponsorProfile, syncer)
	active, redirected, err := w.Activate(context.Background(), "no-such-step")
	if err != nil || !redirected || active != models.StepOrganization {
		t.Fatalf("Activate = %s, %v, %v", active, redirected, err)
	}
}

func TestWizardFetchOnFirstVisitOnly(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	syncer.stored[models.StepContact] = &models.ScholarContact{Email: "saved@example.com", Phone: "1"}
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)

	w.Activate(ctx, models.StepContact)
	w.Prev(ctx, nil)
	w.Next(ctx, nil)

	got, _ := w.Draft(models.StepContact)
	if got.(*models.ScholarContact).Email != "saved@example.com" {
		t.Errorf("contact draft = %#v", got)
	}
	count := 0
	for _, k := range syncer.fetched {
		if k == models.StepContact {
			count++
		}
	}
	if count != 1 {
		t.Errorf("contact fetched %d times, want 1", count)
	}
}

func TestWizardFetchFailureIsNonBlocking(t *testing.T) {
	syncer := newFakeProfile()
	syncer.fetchErr = errors.New("boom")
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)

	active, _, err := w.Activate(context.Background(), models.StepEducation)
	var fe *models.FetchError
	if !errors.As(err, &fe) || fe.Step != models.StepEducation {
		t.Fatalf("expected FetchError for education, got %v", err)
	}
	if active != models.StepEducation {
		t.Errorf("active = %s, want education", active)
	}
	if st := w.State(); st.Values != nil || st.Loading {
		t.Errorf("state after failed fetch = %+v", st)
	}

	syncer.mu.Lock()
	syncer.fetchErr = nil
	syncer.mu.Unlock()
	if err := w.Retry(context.Background()); err != nil {
		t.Errorf("Retry: %v", err)
	}
	if _, ok := w.Draft(models.StepEducation); !ok {
		t.Error("retry did not populate the cache")
	}
}

func TestWizardFailedSaveKeepsStepAndValues(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	syncer.saveErr = errors.New("status 500")
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)
	w.Activate(ctx, models.StepPersonal)

	values := &models.ScholarPersonal{FirstName: "Ada", LastName: "Obi"}
	active, err := w.SaveAndNext(ctx, values)

	var se *models.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if active != models.StepPersonal || w.Active() != models.StepPersonal {
		t.Errorf("active = %s, want personal", active)
	}
	got, _ := w.Draft(models.StepPersonal)
	if got.(*models.ScholarPersonal).FirstName != "Ada" {
		t.Errorf("draft lost after failed save: %#v", got)
	}
	if st := w.State(); st.Saving {
		t.Error("saving flag left set")
	}
}

func TestWizardSaveAndNext(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	var acks []*models.Ack
	w, err := New(Options{
		Flow:     models.FlowScholarProfile,
		Registry: registry.MustLoad(),
		Syncer:   syncer,
		OnSaved:  func(a *models.Ack) { acks = append(acks, a) },
	})
	if err != nil {
		t.Fatal(err)
	}
	w.Activate(ctx, models.StepPersonal)

	active, err := w.SaveAndNext(ctx, &models.ScholarPersonal{FirstName: "Ada", LastName: "Obi"})
	if err != nil {
		t.Fatalf("SaveAndNext: %v", err)
	}
	if active != models.StepAddress {
		t.Errorf("active = %s, want address", active)
	}
	if len(acks) != 1 || acks[0].Flow != models.FlowScholarProfile || acks[0].Step != models.StepPersonal {
		t.Errorf("acks = %+v", acks)
	}
	if st := w.State(); len(st.Completed) != 1 || st.Completed[0] != models.StepPersonal {
		t.Errorf("completed = %v", st.Completed)
	}
}

func TestWizardValidationNeverReachesNetwork(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)
	w.Activate(ctx, models.StepAddress)

	err := w.Save(ctx, &models.ScholarAddress{City: "Lagos"})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if syncer.saveCount() != 0 {
		t.Error("invalid payload was sent")
	}
	got, _ := w.Draft(models.StepAddress)
	if got.(*models.ScholarAddress).City != "Lagos" {
		t.Error("draft not kept after validation failure")
	}
}

func TestWizardPendingFilesSatisfyRequiredFields(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	syncer.flow = models.FlowSponsorProfile
	w := newProfileWizard(t, models.FlowSponsorProfile, syncer)
	w.Activate(ctx, models.StepLogo)

	if err := w.Save(ctx, nil); err == nil {
		t.Fatal("logo step saved without a logo")
	}
	if err := w.AddFile("organization", "x.png", "tg:1"); err == nil {
		t.Error("AddFile accepted a non-file field")
	}
	if err := w.AddFile("logo", "logo.png", "tg:abc"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if n := len(w.State().PendingFiles); n != 1 {
		t.Fatalf("pending files = %d", n)
	}
	if err := w.Save(ctx, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(syncer.files) != 1 || len(syncer.files[0]) != 1 || syncer.files[0][0].Source != "tg:abc" {
		t.Errorf("files passed to syncer = %+v", syncer.files)
	}
	if n := len(w.State().PendingFiles); n != 0 {
		t.Errorf("pending files not cleared: %d", n)
	}
}

func TestWizardKeepsFilesQueuedDuringSave(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	syncer.flow = models.FlowSponsorProfile
	syncer.entered = make(chan struct{}, 2)
	syncer.release = make(chan struct{})
	w := newProfileWizard(t, models.FlowSponsorProfile, syncer)
	w.Activate(ctx, models.StepLogo)

	if err := w.AddFile("logo", "first.png", "tg:1"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- w.Save(ctx, nil) }()
	<-syncer.entered

	if err := w.AddFile("logo", "second.png", "tg:2"); err != nil {
		t.Fatalf("AddFile during save: %v", err)
	}
	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}

	pending := w.State().PendingFiles
	if len(pending) != 1 || pending[0].Name != "second.png" {
		t.Fatalf("pending after save = %+v", pending)
	}
	if err := w.Save(ctx, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.files) != 2 || len(syncer.files[0]) != 1 || syncer.files[1][0].Name != "second.png" {
		t.Errorf("files sent = %+v", syncer.files)
	}
	if n := len(w.State().PendingFiles); n != 0 {
		t.Errorf("pending files not cleared: %d", n)
	}
}

func TestWizardRejectsConcurrentSaveOfSameStep(t *testing.T) {
	ctx := context.Background()
	syncer := newFakeProfile()
	syncer.entered = make(chan struct{})
	syncer.release = make(chan struct{})
	w := newProfileWizard(t, models.FlowScholarProfile, syncer)
	w.Activate(ctx, models.StepPersonal)

	values := &models.ScholarPersonal{FirstName: "Ada", LastName: "Obi"}
	done := make(chan error, 1)
	go func() { done <- w.Save(ctx, values) }()
	<-syncer.entered

	if !w.State().Saving {
		t.Error("state does not report the in-flight save")
	}
	if err := w.Save(ctx, values); !errors.Is(err, models.ErrSaveInFlight) {
		t.Errorf("second save = %v, want ErrSaveInFlight", err)
	}

	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if syncer.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", syncer.saveCount())
	}
}

func TestWizardGoToProfile(t *testing.T) {
	ctx := context.Background()
	w, err := New(Options{
		Flow:      models.FlowScholarProfile,
		Registry:  registry.MustLoad(),
		Syncer:    newFakeProfile(),
		Completed: []models.StepKey{models.StepEssays},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.GoTo(ctx, models.StepReview); !errors.Is(err, models.ErrStepLocked) {
		t.Errorf("jump to unvisited step = %v", err)
	}
	if active, err := w.GoTo(ctx, models.StepEssays); err != nil || active != models.StepEssays {
		t.Errorf("jump to completed step = %s, %v", active, err)
	}
	if active, err := w.GoTo(ctx, models.StepPersonal); err != nil || active != models.StepPersonal {
		t.Errorf("jump back to visited step = %s, %v", active, err)
	}
}

func TestWizardEdit(t *testing.T) {
	w := newProfileWizard(t, models.FlowScholarProfile, newFakeProfile())
	w.Activate(context.Background(), models.StepAddress)

	if _, err := w.Edit(map[string]string{"homeAddress": "12 Example Rd", "city": "Accra"}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	p, err := w.Edit(map[string]string{"city": "Kumasi"})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	addr := p.(*models.ScholarAddress)
	if addr.HomeAddress != "12 Example Rd" || addr.City != "Kumasi" {
		t.Errorf("draft = %+v", addr)
	}
	if _, err := w.Edit(map[string]string{"planet": "Mars"}); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestResumeStep(t *testing.T) {
	steps := []models.StepKey{"a", "b", "c"}
	if got := ResumeStep(steps, nil); got != "a" {
		t.Errorf("ResumeStep(nil) = %s", got)
	}
	if got := ResumeStep(steps, []models.StepKey{"a", "c"}); got != "b" {
		t.Errorf("ResumeStep(a,c) = %s", got)
	}
	if got := ResumeStep(steps, steps); got != "c" {
		t.Errorf("ResumeStep(all) = %s", got)
	}
	if got := ResumeStep(nil, nil); got != "" {
		t.Errorf("ResumeStep(empty) = %s", got)
	}
}

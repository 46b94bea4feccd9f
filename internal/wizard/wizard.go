// Package wizard implements the multi-step wizard engine: navigation over a
// step registry, an in-memory draft cache, remote step sync and the
// completion gate of the scholarship flow.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"go.uber.org/zap"
)

var ErrIncomplete = errors.New("scholarship has unsaved steps")

// Syncer reads and writes one step at a time against the backend.
type Syncer interface {
	FetchStep(ctx context.Context, key models.StepKey) (models.StepPayload, error)
	SaveStep(ctx context.Context, key models.StepKey, p models.StepPayload, files []models.PendingFile) (*models.Ack, error)
}

// EntitySyncer is implemented by syncers of entity-backed flows.
type EntitySyncer interface {
	Reload(ctx context.Context) (*models.Scholarship, error)
	Submit(ctx context.Context) (*models.Scholarship, error)
}

type Options struct {
	Flow     models.Flow
	Registry *registry.Registry
	Syncer   Syncer
	Logger   *zap.Logger
	// OnSaved receives every successful save acknowledgement.
	OnSaved func(*models.Ack)
	// Scholarship seeds the gated flow; nil starts an empty entity.
	Scholarship *models.Scholarship
	// Completed lists profile steps the server reports as saved.
	Completed []models.StepKey
}

// State is a snapshot of everything needed to render the current screen.
type State struct {
	Flow         models.Flow
	Active       models.StepKey
	Index        int
	Total        int
	Step         registry.Step
	Values       models.StepPayload
	Loading      bool
	Saving       bool
	Reachable    []models.StepKey
	Completed    []models.StepKey
	Drafted      []models.StepKey
	PendingFiles []models.PendingFile
	EntityID     string
	Submitted    bool
	CanSubmit    bool
}

type Wizard struct {
	mu sync.Mutex

	flow    models.Flow
	reg     *registry.Registry
	syncer  Syncer
	entity  EntitySyncer
	logger  *zap.Logger
	onSaved func(*models.Ack)

	nav   *Navigator
	cache *DraftCache

	scholarship *models.Scholarship
	flags       models.CompletionFlags
	completed   map[models.StepKey]bool

	loading     map[models.StepKey]bool
	saving      map[models.StepKey]bool
	pending     map[models.StepKey][]models.PendingFile
	pendingJump models.StepKey
}

func New(opts Options) (*Wizard, error) {
	if opts.Registry == nil || opts.Syncer == nil {
		return nil, fmt.Errorf("wizard: registry and syncer are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Wizard{
		flow:      opts.Flow,
		reg:       opts.Registry,
		syncer:    opts.Syncer,
		logger:    logger.Named("wizard").With(zap.String("flow", string(opts.Flow))),
		onSaved:   opts.OnSaved,
		cache:     NewDraftCache(),
		completed: make(map[models.StepKey]bool),
		loading:   make(map[models.StepKey]bool),
		saving:    make(map[models.StepKey]bool),
		pending:   make(map[models.StepKey][]models.PendingFile),
	}

	if opts.Flow.Gated() {
		es, ok := opts.Syncer.(EntitySyncer)
		if !ok {
			return nil, fmt.Errorf("wizard: %s requires an entity syncer", opts.Flow)
		}
		w.entity = es
		s := opts.Scholarship
		if s == nil {
			s = &models.Scholarship{Status: models.ScholarshipDraft}
		}
		w.nav = NewNavigator(w.reg.ScholarshipKeys(s.Flags().SelectionMethod))
		w.applyScholarship(s)
		if !w.flags.Submitted {
			w.nav.ResolveIndex(GateTarget(w.flags))
		}
		return w, nil
	}

	if len(opts.Registry.Keys(opts.Flow)) == 0 {
		return nil, fmt.Errorf("wizard: flow %s has no steps", opts.Flow)
	}
	w.nav = NewNavigator(opts.Registry.Keys(opts.Flow))
	for _, k := range opts.Completed {
		w.completed[k] = true
	}
	return w, nil
}

func (w *Wizard) Flow() models.Flow { return w.flow }

// Activate resolves the active step from a route key. Unknown keys resolve to
// the first step (redirected=true). In the gated flow a key beyond the
// frontier resolves to the frontier. A fetch failure is returned as a
// *models.FetchError but the step stays active with empty defaults.
func (w *Wizard) Activate(ctx context.Context, key models.StepKey) (models.StepKey, bool, error) {
	w.mu.Lock()
	var active models.StepKey
	redirected := false
	if w.flow.Gated() {
		i := w.nav.IndexOf(key)
		if i < 0 {
			redirected = true
			i = 0
		}
		active = w.activateIndexLocked(i)
	} else {
		active, redirected = w.nav.Resolve(key)
	}
	w.mu.Unlock()

	return active, redirected, w.ensureLoaded(ctx, active)
}

// ActivateIndex selects a step by position, clamped to the valid range and,
// in the gated flow, to the reachable frontier.
func (w *Wizard) ActivateIndex(ctx context.Context, i int) (models.StepKey, error) {
	w.mu.Lock()
	active := w.activateIndexLocked(i)
	w.mu.Unlock()
	return active, w.ensureLoaded(ctx, active)
}

func (w *Wizard) activateIndexLocked(i int) models.StepKey {
	if w.flow.Gated() && !w.flags.Submitted {
		if frontier := len(w.reachableLocked()) - 1; i > frontier {
			i = frontier
		}
	}
	return w.nav.ResolveIndex(i)
}

// Next stores values (when given) as the current step's draft and advances by one.
func (w *Wizard) Next(ctx context.Context, values models.StepPayload) (models.StepKey, error) {
	return w.move(ctx, values, +1)
}

// Prev stores values (when given) as the current step's draft and moves back by one.
func (w *Wizard) Prev(ctx context.Context, values models.StepPayload) (models.StepKey, error) {
	return w.move(ctx, values, -1)
}

func (w *Wizard) move(ctx context.Context, values models.StepPayload, delta int) (models.StepKey, error) {
	w.mu.Lock()
	if values != nil {
		w.cache.Set(w.nav.Active(), values)
	}
	active := w.activateIndexLocked(w.nav.Index() + delta)
	w.mu.Unlock()
	return active, w.ensureLoaded(ctx, active)
}

// GoTo jumps to key. The gated flow only allows reachable steps; profile
// flows allow steps already visited or saved.
func (w *Wizard) GoTo(ctx context.Context, key models.StepKey) (models.StepKey, error) {
	w.mu.Lock()
	err := w.nav.JumpTo(key, w.allowedLocked)
	active := w.nav.Active()
	w.mu.Unlock()
	if err != nil {
		return active, err
	}
	return active, w.ensureLoaded(ctx, active)
}

func (w *Wizard) allowedLocked(key models.StepKey) bool {
	if w.flow.Gated() {
		return contains(w.reachableLocked(), key)
	}
	return w.nav.Visited(key) || w.completed[key]
}

func (w *Wizard) reachableLocked() []models.StepKey {
	if !w.flow.Gated() {
		var out []models.StepKey
		for _, k := range w.nav.Steps() {
			if w.nav.Visited(k) || w.completed[k] {
				out = append(out, k)
			}
		}
		return out
	}
	var out []models.StepKey
	for _, k := range Reachable(w.flags) {
		if w.nav.IndexOf(k) >= 0 {
			out = append(out, k)
		}
	}
	return out
}

// Edit applies textual field edits to the active step's draft.
func (w *Wizard) Edit(edits map[string]string) (models.StepPayload, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.nav.Active()
	current, _ := w.cache.Get(key)
	p, err := w.reg.ApplyEdits(w.flow, key, current, edits)
	if err != nil {
		return nil, err
	}
	w.cache.Set(key, p)
	return p, nil
}

// AddFile queues a file for the active step's named file field.
func (w *Wizard) AddFile(field, name, source string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.nav.Active()
	f, ok := w.reg.Lookup(w.flow, key).Field(field)
	if !ok || f.Kind != models.FieldFile {
		return &models.ValidationError{Step: key, Violations: []models.FieldViolation{{Field: field, Rule: "file"}}}
	}
	w.pending[key] = append(w.pending[key], models.PendingFile{Field: field, Name: name, Source: source})
	return nil
}

// Save persists the active step. values replaces the draft when non-nil.
// On failure the wizard stays on the step and the draft is kept.
func (w *Wizard) Save(ctx context.Context, values models.StepPayload) error {
	_, err := w.save(ctx, values)
	return err
}

// SaveAndNext saves the active step and advances only after the save
// succeeded. If the user moved elsewhere meanwhile, navigation is left alone.
func (w *Wizard) SaveAndNext(ctx context.Context, values models.StepPayload) (models.StepKey, error) {
	key, err := w.save(ctx, values)
	if err != nil {
		return w.Active(), err
	}

	w.mu.Lock()
	if w.nav.Active() != key {
		active := w.nav.Active()
		w.mu.Unlock()
		return active, w.ensureLoaded(ctx, active)
	}
	active := w.activateIndexLocked(w.nav.Index() + 1)
	w.mu.Unlock()
	return active, w.ensureLoaded(ctx, active)
}

func (w *Wizard) save(ctx context.Context, values models.StepPayload) (models.StepKey, error) {
	w.mu.Lock()
	key := w.nav.Active()
	if w.saving[key] {
		w.mu.Unlock()
		return key, models.ErrSaveInFlight
	}

	p := values
	if p == nil {
		p, _ = w.cache.Get(key)
	}
	if p == nil {
		var err error
		if p, err = registry.New(w.flow, key); err != nil {
			w.mu.Unlock()
			return key, err
		}
	}
	w.cache.Set(key, p)
	files := append([]models.PendingFile(nil), w.pending[key]...)

	if err := validateWithPending(p, files); err != nil {
		w.mu.Unlock()
		return key, err
	}
	w.saving[key] = true
	w.mu.Unlock()

	ack, err := w.syncer.SaveStep(ctx, key, p, files)

	w.mu.Lock()
	w.saving[key] = false
	if err != nil {
		w.mu.Unlock()
		w.logger.Warn("step save failed", zap.String("step", string(key)), zap.Error(err))
		return key, err
	}

	// Files queued while the save was in flight stay queued.
	w.pending[key] = w.pending[key][len(files):]
	if len(w.pending[key]) == 0 {
		delete(w.pending, key)
	}
	if ack.Saved != nil {
		w.cache.Set(key, ack.Saved)
	}
	w.completed[key] = true
	for _, k := range ack.CompletedSteps {
		w.completed[k] = true
	}
	if w.flow.Gated() {
		if ack.Scholarship != nil {
			w.applyScholarship(ack.Scholarship)
		}
		if key == models.StepSelection && w.flags.RequiresDocuments() {
			w.pendingJump = models.StepDocuments
		}
		w.applyPendingJumpLocked()
	}
	onSaved := w.onSaved
	w.mu.Unlock()

	if ack.Flow == "" {
		ack.Flow = w.flow
	}
	if ack.Step == "" {
		ack.Step = key
	}
	if onSaved != nil {
		onSaved(ack)
	}
	return key, nil
}

// validateWithPending validates p as it will look once queued files are
// uploaded, so required file fields are satisfied by pending uploads.
func validateWithPending(p models.StepPayload, files []models.PendingFile) error {
	if len(files) == 0 {
		return registry.Validate(p)
	}
	probe, err := registry.Clone(p)
	if err != nil {
		return err
	}
	if fa, ok := probe.(models.FileAttacher); ok {
		for _, f := range files {
			fa.AttachFile(f.Field, "https://pending.invalid/"+f.Name)
		}
	}
	return registry.Validate(probe)
}

// Refresh refetches the entity of a gated flow, recomputes the gate and
// applies a pending jump once the step list contains its target.
func (w *Wizard) Refresh(ctx context.Context) error {
	if w.entity == nil {
		return nil
	}
	s, err := w.entity.Reload(ctx)
	if err != nil {
		return &models.FetchError{Step: w.Active(), Err: err}
	}
	w.mu.Lock()
	w.applyScholarship(s)
	w.applyPendingJumpLocked()
	w.mu.Unlock()
	return nil
}

// Submit finalises the scholarship. Every applicable step must be saved.
func (w *Wizard) Submit(ctx context.Context) (*models.Scholarship, error) {
	if w.entity == nil {
		return nil, fmt.Errorf("wizard: %s cannot be submitted", w.flow)
	}
	w.mu.Lock()
	ready := Complete(w.flags)
	w.mu.Unlock()
	if !ready {
		return nil, ErrIncomplete
	}

	s, err := w.entity.Submit(ctx)
	if err != nil {
		return nil, &models.SaveError{Step: w.Active(), Err: err}
	}
	w.mu.Lock()
	// The submitted entity replaces local drafts.
	w.logger.Debug("scholarship submitted", zap.String("id", s.ID), zap.Int("drafts", w.cache.Len()))
	w.cache.Reset()
	w.applyScholarship(s)
	w.mu.Unlock()
	return s, nil
}

// applyScholarship mirrors the entity into flags, step list and cache.
// Cached drafts win over server values except for server-owned funding state.
func (w *Wizard) applyScholarship(s *models.Scholarship) {
	w.scholarship = s
	w.flags = s.Flags()
	w.nav.SetSteps(w.reg.ScholarshipKeys(w.flags.SelectionMethod))

	for _, k := range w.nav.Steps() {
		p := s.Payload(k)
		if p == nil {
			continue
		}
		if cached, ok := w.cache.Get(k); ok {
			if f, isFunding := cached.(*models.ScholarshipFunding); isFunding && s.Funding != nil {
				// An in-flight save may be encoding the cached value.
				next := *f
				next.IsPaid = s.Funding.IsPaid
				next.Reference = s.Funding.Reference
				w.cache.Set(k, &next)
			}
			continue
		}
		w.cache.Set(k, p)
	}
	for _, k := range []models.StepKey{models.StepDetails, models.StepEligibility, models.StepSelection, models.StepDocuments} {
		if s.Payload(k) != nil && completedFlag(s.Completed, k) {
			w.completed[k] = true
		}
	}
	if w.flags.FundingPaid {
		w.completed[models.StepFunding] = true
	}
}

func completedFlag(c models.ScholarshipSteps, k models.StepKey) bool {
	switch k {
	case models.StepDetails:
		return c.Details
	case models.StepFunding:
		return c.Funding
	case models.StepEligibility:
		return c.Eligibility
	case models.StepSelection:
		return c.Selection
	case models.StepDocuments:
		return c.Documents
	}
	return false
}

func (w *Wizard) applyPendingJumpLocked() {
	if w.pendingJump == "" || w.nav.IndexOf(w.pendingJump) < 0 {
		return
	}
	target := w.pendingJump
	if err := w.nav.JumpTo(target, w.allowedLocked); err != nil {
		return
	}
	w.pendingJump = ""
	w.logger.Debug("applied pending jump", zap.String("step", string(target)))
}

// ensureLoaded fetches the step's persisted value on first visit when no
// draft is cached. Fetch failures leave the step empty and are returned as
// *models.FetchError for a non-blocking notice.
func (w *Wizard) ensureLoaded(ctx context.Context, key models.StepKey) error {
	w.mu.Lock()
	if _, ok := w.cache.Get(key); ok || w.loading[key] || key == "" {
		w.mu.Unlock()
		return nil
	}
	if w.flow.Gated() {
		// The entity already carries every step; nothing to fetch.
		w.mu.Unlock()
		return nil
	}
	w.loading[key] = true
	w.mu.Unlock()

	p, err := w.syncer.FetchStep(ctx, key)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading[key] = false
	if err != nil {
		w.logger.Info("step fetch failed", zap.String("step", string(key)), zap.Error(err))
		var fe *models.FetchError
		if errors.As(err, &fe) {
			return fe
		}
		return &models.FetchError{Step: key, Err: err}
	}
	if _, ok := w.cache.Get(key); !ok && p != nil {
		w.cache.Set(key, p)
	}
	return nil
}

// Retry refetches the active step after a failed fetch.
func (w *Wizard) Retry(ctx context.Context) error {
	return w.ensureLoaded(ctx, w.Active())
}

func (w *Wizard) Active() models.StepKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nav.Active()
}

// Draft returns the cached value of a step.
func (w *Wizard) Draft(key models.StepKey) (models.StepPayload, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.Get(key)
}

func (w *Wizard) Scholarship() *models.Scholarship {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scholarship
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.nav.Active()
	values, _ := w.cache.Get(key)
	st := State{
		Flow:         w.flow,
		Active:       key,
		Index:        w.nav.Index(),
		Total:        len(w.nav.Steps()),
		Step:         w.reg.Lookup(w.flow, key),
		Values:       values,
		Loading:      w.loading[key],
		Saving:       w.saving[key],
		Reachable:    w.reachableLocked(),
		PendingFiles: append([]models.PendingFile(nil), w.pending[key]...),
	}
	for _, k := range w.nav.Steps() {
		if w.completed[k] {
			st.Completed = append(st.Completed, k)
		}
	}
	for _, k := range w.cache.Keys() {
		if w.nav.IndexOf(k) >= 0 {
			st.Drafted = append(st.Drafted, k)
		}
	}
	if w.scholarship != nil {
		st.EntityID = w.scholarship.ID
		st.Submitted = w.flags.Submitted
		st.CanSubmit = !w.flags.Submitted && Complete(w.flags)
	}
	return st
}

// ResumeStep returns the first step not yet completed, or the last step when
// all are complete.
func ResumeStep(steps []models.StepKey, completed []models.StepKey) models.StepKey {
	if len(steps) == 0 {
		return ""
	}
	done := make(map[models.StepKey]bool, len(completed))
	for _, k := range completed {
		done[k] = true
	}
	for _, k := range steps {
		if !done[k] {
			return k
		}
	}
	return steps[len(steps)-1]
}

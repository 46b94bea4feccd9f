package wizard

import (
	"fmt"

	"github.com/ad/go-scholar-wizard/internal/models"
)

// Navigator tracks the active step of an ordered step list. Out-of-range
// moves are clamped, never errors.
type Navigator struct {
	steps   []models.StepKey
	index   int
	visited map[models.StepKey]bool
}

func NewNavigator(steps []models.StepKey) *Navigator {
	n := &Navigator{
		steps:   append([]models.StepKey(nil), steps...),
		visited: make(map[models.StepKey]bool),
	}
	n.markVisited()
	return n
}

func (n *Navigator) Steps() []models.StepKey {
	return append([]models.StepKey(nil), n.steps...)
}

func (n *Navigator) Index() int { return n.index }

func (n *Navigator) Last() int { return len(n.steps) - 1 }

func (n *Navigator) Active() models.StepKey {
	if len(n.steps) == 0 {
		return ""
	}
	return n.steps[n.index]
}

func (n *Navigator) IndexOf(key models.StepKey) int {
	for i, k := range n.steps {
		if k == key {
			return i
		}
	}
	return -1
}

// Resolve activates the step named by a route segment. Unknown or empty keys
// resolve to the first step and report redirected=true.
func (n *Navigator) Resolve(key models.StepKey) (active models.StepKey, redirected bool) {
	i := n.IndexOf(key)
	if i < 0 {
		i = 0
		redirected = true
	}
	n.index = i
	n.markVisited()
	return n.Active(), redirected
}

// ResolveIndex activates a step by position, clamped to the valid range.
func (n *Navigator) ResolveIndex(i int) models.StepKey {
	n.index = n.clamp(i)
	n.markVisited()
	return n.Active()
}

func (n *Navigator) Next() models.StepKey {
	return n.ResolveIndex(n.index + 1)
}

func (n *Navigator) Prev() models.StepKey {
	return n.ResolveIndex(n.index - 1)
}

// JumpTo moves to key when allowed reports it reachable.
func (n *Navigator) JumpTo(key models.StepKey, allowed func(models.StepKey) bool) error {
	i := n.IndexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownStep, key)
	}
	if allowed != nil && !allowed(key) {
		return fmt.Errorf("%w: %s", models.ErrStepLocked, key)
	}
	n.index = i
	n.markVisited()
	return nil
}

// SetSteps replaces the step list. The active step is kept when still
// present; otherwise the index is clamped into the new list.
func (n *Navigator) SetSteps(steps []models.StepKey) {
	active := n.Active()
	n.steps = append([]models.StepKey(nil), steps...)
	if i := n.IndexOf(active); i >= 0 {
		n.index = i
	} else {
		n.index = n.clamp(n.index)
	}
}

func (n *Navigator) Visited(key models.StepKey) bool {
	return n.visited[key]
}

func (n *Navigator) clamp(i int) int {
	if i > n.Last() {
		i = n.Last()
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (n *Navigator) markVisited() {
	if k := n.Active(); k != "" {
		n.visited[k] = true
	}
}

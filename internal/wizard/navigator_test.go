package wizard

import (
	"errors"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"pgregory.net/rapid"
)

var allFlows = []models.Flow{models.FlowScholarProfile, models.FlowSponsorProfile, models.FlowScholarship}

// For any sequence of next/prev/index moves the active index stays in range.
func TestNavigatorClamp_Property(t *testing.T) {
	reg := registry.MustLoad()
	rapid.Check(t, func(t *rapid.T) {
		flow := rapid.SampledFrom(allFlows).Draw(t, "flow")
		n := NewNavigator(reg.Keys(flow))

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 60).Draw(t, "ops")
		for i, op := range ops {
			switch op {
			case 0:
				n.Next()
			case 1:
				n.Prev()
			default:
				n.ResolveIndex(rapid.IntRange(-50, 50).Draw(t, "index"))
			}
			if n.Index() < 0 || n.Index() > n.Last() {
				t.Fatalf("op %d: index %d out of [0,%d]", i, n.Index(), n.Last())
			}
			if n.Active() != n.Steps()[n.Index()] {
				t.Fatalf("op %d: active %s does not match index %d", i, n.Active(), n.Index())
			}
		}
	})
}

// Any key outside the flow resolves to the first step.
func TestNavigatorResolveUnknown_Property(t *testing.T) {
	reg := registry.MustLoad()
	rapid.Check(t, func(t *rapid.T) {
		flow := rapid.SampledFrom(allFlows).Draw(t, "flow")
		key := models.StepKey(rapid.StringMatching(`[a-z\-]{0,20}`).Draw(t, "key"))
		if reg.Has(flow, key) {
			t.Skip("known key")
		}
		n := NewNavigator(reg.Keys(flow))
		n.ResolveIndex(rapid.IntRange(0, n.Last()).Draw(t, "start"))

		active, redirected := n.Resolve(key)
		if !redirected || active != reg.Keys(flow)[0] || n.Index() != 0 {
			t.Fatalf("Resolve(%q) = %s, %v; want first step", key, active, redirected)
		}
	})
}

func TestNavigatorResolveKnown(t *testing.T) {
	n := NewNavigator(registry.MustLoad().Keys(models.FlowScholarProfile))
	active, redirected := n.Resolve(models.StepAddress)
	if redirected || active != models.StepAddress || n.Index() != 1 {
		t.Fatalf("Resolve(address) = %s, %v at %d", active, redirected, n.Index())
	}
	if got := n.Next(); got != models.StepContact {
		t.Errorf("Next = %s, want contact", got)
	}
}

func TestNavigatorJumpTo(t *testing.T) {
	n := NewNavigator([]models.StepKey{"a", "b", "c"})

	if err := n.JumpTo("x", nil); !errors.Is(err, models.ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
	deny := func(models.StepKey) bool { return false }
	if err := n.JumpTo("c", deny); !errors.Is(err, models.ErrStepLocked) {
		t.Errorf("expected ErrStepLocked, got %v", err)
	}
	if n.Active() != "a" {
		t.Errorf("failed jump moved the wizard to %s", n.Active())
	}
	if err := n.JumpTo("c", nil); err != nil || n.Active() != "c" {
		t.Errorf("JumpTo(c) = %v, active %s", err, n.Active())
	}
	if !n.Visited("a") || n.Visited("b") || !n.Visited("c") {
		t.Error("visited set is wrong")
	}
}

func TestNavigatorSetSteps(t *testing.T) {
	n := NewNavigator([]models.StepKey{"a", "b", "c", "d"})
	n.ResolveIndex(2)

	n.SetSteps([]models.StepKey{"a", "c", "d"})
	if n.Active() != "c" || n.Index() != 1 {
		t.Errorf("active step not kept: %s at %d", n.Active(), n.Index())
	}

	n.ResolveIndex(2)
	n.SetSteps([]models.StepKey{"a", "b"})
	if n.Index() != 1 {
		t.Errorf("index not clamped: %d", n.Index())
	}
}

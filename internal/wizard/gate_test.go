package wizard

import (
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"pgregory.net/rapid"
)

func TestGateTarget(t *testing.T) {
	all := models.CompletionFlags{Details: true, FundingPaid: true, Eligibility: true, Selection: true}

	cases := []struct {
		name  string
		flags models.CompletionFlags
		want  int
	}{
		{"nothing saved", models.CompletionFlags{}, GateDetails},
		{"details missing wins over everything", models.CompletionFlags{FundingPaid: true, Eligibility: true, Selection: true}, GateDetails},
		{"funding unpaid", models.CompletionFlags{Details: true}, GateFunding},
		{"funding unpaid despite later steps", models.CompletionFlags{Details: true, Eligibility: true, Selection: true}, GateFunding},
		{"eligibility missing", models.CompletionFlags{Details: true, FundingPaid: true}, GateEligibility},
		{"selection missing", models.CompletionFlags{Details: true, FundingPaid: true, Eligibility: true}, GateSelection},
		{"matched scholar complete", withMethod(all, models.SelectionMatched), GateSelection},
		{"self selection needs documents", withMethod(all, models.SelectionSelf), GateDocuments},
		{"self selection complete", func() models.CompletionFlags {
			f := withMethod(all, models.SelectionSelf)
			f.Documents = true
			return f
		}(), GateDocuments},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := GateTarget(c.flags); got != c.want {
				t.Errorf("GateTarget = %d, want %d", got, c.want)
			}
		})
	}
}

func withMethod(f models.CompletionFlags, m models.SelectionMethod) models.CompletionFlags {
	f.SelectionMethod = m
	return f
}

func drawFlags(t *rapid.T) models.CompletionFlags {
	return models.CompletionFlags{
		Details:         rapid.Bool().Draw(t, "details"),
		FundingPaid:     rapid.Bool().Draw(t, "fundingPaid"),
		Eligibility:     rapid.Bool().Draw(t, "eligibility"),
		Selection:       rapid.Bool().Draw(t, "selection"),
		Documents:       rapid.Bool().Draw(t, "documents"),
		SelectionMethod: rapid.SampledFrom([]models.SelectionMethod{"", models.SelectionSelf, models.SelectionMatched}).Draw(t, "method"),
		Submitted:       rapid.Bool().Draw(t, "submitted"),
	}
}

// Every step before the target is satisfied and the target itself is the
// first unmet one, unless the scholarship is complete.
func TestGateTargetFirstMatch_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := drawFlags(t)
		met := []bool{f.Details, f.FundingPaid, f.Eligibility, f.Selection, f.Documents}
		steps := GateSteps(f)
		target := GateTarget(f)

		if target < 0 || target >= len(steps) {
			t.Fatalf("target %d outside %d steps", target, len(steps))
		}
		for i := 0; i < target; i++ {
			if !met[i] {
				t.Fatalf("step %d unmet but target is %d", i, target)
			}
		}
		if !Complete(f) && met[target] {
			t.Fatalf("target %d already satisfied for incomplete scholarship %+v", target, f)
		}
	})
}

func TestReachable_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := drawFlags(t)
		reach := Reachable(f)
		steps := GateSteps(f)

		if f.Submitted && len(reach) != len(steps) {
			t.Fatalf("submitted scholarship must open all %d steps, got %v", len(steps), reach)
		}
		if !f.Submitted && len(reach) != GateTarget(f)+1 {
			t.Fatalf("reachable %v does not end at target %d", reach, GateTarget(f))
		}
		for i, k := range reach {
			if steps[i] != k {
				t.Fatalf("reachable set is not a prefix: %v vs %v", reach, steps)
			}
		}
		if contains(reach, models.StepDocuments) && !f.RequiresDocuments() {
			t.Fatalf("documents reachable without self selection")
		}
	})
}

func TestComplete(t *testing.T) {
	f := models.CompletionFlags{Details: true, FundingPaid: true, Eligibility: true, Selection: true, SelectionMethod: models.SelectionMatched}
	if !Complete(f) {
		t.Error("matched scholar without documents should be complete")
	}
	f.SelectionMethod = models.SelectionSelf
	if Complete(f) {
		t.Error("self selection without documents should be incomplete")
	}
	f.Documents = true
	if !Complete(f) {
		t.Error("self selection with documents should be complete")
	}
}

package wizard

import "github.com/ad/go-scholar-wizard/internal/models"

// Scholarship step positions as used by the completion gate.
const (
	GateDetails = iota
	GateFunding
	GateEligibility
	GateSelection
	GateDocuments
)

var gateOrder = []models.StepKey{
	models.StepDetails,
	models.StepFunding,
	models.StepEligibility,
	models.StepSelection,
	models.StepDocuments,
}

// GateSteps returns the scholarship steps that apply to the entity.
func GateSteps(f models.CompletionFlags) []models.StepKey {
	if f.RequiresDocuments() {
		return append([]models.StepKey(nil), gateOrder...)
	}
	return append([]models.StepKey(nil), gateOrder[:GateDocuments]...)
}

// GateTarget computes the furthest step the scholarship wizard may reach.
// The first unmet requirement wins, so a predecessor always takes priority.
func GateTarget(f models.CompletionFlags) int {
	switch {
	case !f.Details:
		return GateDetails
	case !f.FundingPaid:
		return GateFunding
	case !f.Eligibility:
		return GateEligibility
	case !f.Selection:
		return GateSelection
	case f.RequiresDocuments() && !f.Documents:
		return GateDocuments
	}
	return len(GateSteps(f)) - 1
}

// Reachable returns the explicit set of steps navigation may enter. A
// submitted scholarship is in update mode and every applicable step is open.
func Reachable(f models.CompletionFlags) []models.StepKey {
	steps := GateSteps(f)
	if f.Submitted {
		return steps
	}
	return steps[:GateTarget(f)+1]
}

// Complete reports whether every applicable step is durably saved.
func Complete(f models.CompletionFlags) bool {
	done := f.Details && f.FundingPaid && f.Eligibility && f.Selection
	if f.RequiresDocuments() {
		done = done && f.Documents
	}
	return done
}

func contains(keys []models.StepKey, key models.StepKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

package models

import "time"

// Scholarship is the server-side entity edited by the scholarship wizard.
type Scholarship struct {
	ID          string                  `json:"id"`
	SponsorID   string                  `json:"sponsorId,omitempty"`
	Status      ScholarshipStatus       `json:"status"`
	Details     *ScholarshipDetails     `json:"details,omitempty"`
	Funding     *ScholarshipFunding     `json:"funding,omitempty"`
	Eligibility *ScholarshipEligibility `json:"eligibility,omitempty"`
	Selection   *ScholarshipSelection   `json:"selection,omitempty"`
	Documents   *ScholarshipDocuments   `json:"documents,omitempty"`
	Completed   ScholarshipSteps        `json:"completedSteps"`
	CurrentStep StepKey                 `json:"currentStep,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// ScholarshipSteps records which steps have been durably saved.
type ScholarshipSteps struct {
	Details     bool `json:"details"`
	Funding     bool `json:"funding"`
	Eligibility bool `json:"eligibility"`
	Selection   bool `json:"selection"`
	Documents   bool `json:"documents"`
}

// CompletionFlags is the gate's view of a scholarship. It is derived from the
// entity and is the only input the completion gate consumes.
type CompletionFlags struct {
	Details         bool
	FundingPaid     bool
	Eligibility     bool
	Selection       bool
	Documents       bool
	SelectionMethod SelectionMethod
	Submitted       bool
}

func (s *Scholarship) Flags() CompletionFlags {
	f := CompletionFlags{
		Details:     s.Completed.Details,
		Eligibility: s.Completed.Eligibility,
		Selection:   s.Completed.Selection,
		Documents:   s.Completed.Documents,
		Submitted:   s.Status == ScholarshipSubmitted || s.Status == ScholarshipActive,
	}
	if s.Funding != nil {
		f.FundingPaid = s.Funding.IsPaid
	}
	if s.Selection != nil {
		f.SelectionMethod = s.Selection.Method
	}
	return f
}

// RequiresDocuments reports whether the documents step applies.
func (f CompletionFlags) RequiresDocuments() bool {
	return f.SelectionMethod == SelectionSelf
}

// Payload returns the stored value of one step, or nil when the entity has none.
func (s *Scholarship) Payload(key StepKey) StepPayload {
	switch key {
	case StepDetails:
		if s.Details != nil {
			return s.Details
		}
	case StepFunding:
		if s.Funding != nil {
			return s.Funding
		}
	case StepEligibility:
		if s.Eligibility != nil {
			return s.Eligibility
		}
	case StepSelection:
		if s.Selection != nil {
			return s.Selection
		}
	case StepDocuments:
		if s.Documents != nil {
			return s.Documents
		}
	}
	return nil
}

// FundingInit is returned when a payment is started for a scholarship.
type FundingInit struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	Amount           int    `json:"amount"`
	Currency         string `json:"currency"`
}

// PaymentVerification is the result of confirming a payment reference.
type PaymentVerification struct {
	Reference     string       `json:"reference"`
	Status        string       `json:"status"`
	ScholarshipID string       `json:"scholarshipId"`
	Scholarship   *Scholarship `json:"scholarship,omitempty"`
}

func (v *PaymentVerification) Paid() bool {
	return v.Status == "success"
}

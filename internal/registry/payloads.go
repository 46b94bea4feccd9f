package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ad/go-scholar-wizard/internal/models"
)

// New returns an empty payload for the step. Every catalogue entry has a case.
func New(flow models.Flow, key models.StepKey) (models.StepPayload, error) {
	switch flow {
	case models.FlowScholarProfile:
		switch key {
		case models.StepPersonal:
			return &models.ScholarPersonal{}, nil
		case models.StepAddress:
			return &models.ScholarAddress{}, nil
		case models.StepContact:
			return &models.ScholarContact{}, nil
		case models.StepEducation:
			return &models.ScholarEducation{}, nil
		case models.StepAcademicRecords:
			return &models.ScholarAcademicRecords{}, nil
		case models.StepTestScores:
			return &models.ScholarTestScores{}, nil
		case models.StepFinancialInfo:
			return &models.ScholarFinancialInfo{}, nil
		case models.StepFamily:
			return &models.ScholarFamily{}, nil
		case models.StepEmployment:
			return &models.ScholarEmployment{}, nil
		case models.StepExtracurricular:
			return &models.ScholarExtracurricular{}, nil
		case models.StepAwards:
			return &models.ScholarAwards{}, nil
		case models.StepEssays:
			return &models.ScholarEssays{}, nil
		case models.StepReferences:
			return &models.ScholarReferences{}, nil
		case models.StepDocuments:
			return &models.ScholarDocuments{}, nil
		case models.StepPreferences:
			return &models.ScholarPreferences{}, nil
		case models.StepVerification:
			return &models.ScholarVerification{}, nil
		case models.StepDisclosures:
			return &models.ScholarDisclosures{}, nil
		case models.StepReview:
			return &models.ScholarReview{}, nil
		}
	case models.FlowSponsorProfile:
		switch key {
		case models.StepOrganization:
			return &models.SponsorOrganization{}, nil
		case models.StepContact:
			return &models.SponsorContact{}, nil
		case models.StepAddress:
			return &models.SponsorAddress{}, nil
		case models.StepFundingPreferences:
			return &models.SponsorFundingPreferences{}, nil
		case models.StepLogo:
			return &models.SponsorLogo{}, nil
		case models.StepVerification:
			return &models.SponsorVerification{}, nil
		case models.StepReview:
			return &models.SponsorReview{}, nil
		}
	case models.FlowScholarship:
		switch key {
		case models.StepDetails:
			return &models.ScholarshipDetails{}, nil
		case models.StepFunding:
			return &models.ScholarshipFunding{}, nil
		case models.StepEligibility:
			return &models.ScholarshipEligibility{}, nil
		case models.StepSelection:
			return &models.ScholarshipSelection{}, nil
		case models.StepDocuments:
			return &models.ScholarshipDocuments{}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", models.ErrUnknownStep, flow, key)
}

// Decode parses a step value. An empty or null body yields an empty payload.
func Decode(flow models.Flow, key models.StepKey, raw []byte) (models.StepPayload, error) {
	p, err := New(flow, key)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", flow, key, err)
	}
	return p, nil
}

// Clone returns a deep copy so cached drafts are never aliased by callers.
func Clone(p models.StepPayload) (models.StepPayload, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return Decode(p.StepFlow(), p.StepKey(), data)
}

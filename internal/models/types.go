package models

type Role string

const (
	RoleScholar Role = "scholar"
	RoleSponsor Role = "sponsor"
)

// PathSegment returns the API prefix for the role, e.g. "scholars".
func (r Role) PathSegment() string {
	switch r {
	case RoleSponsor:
		return "sponsors"
	default:
		return "scholars"
	}
}

// ProfileFlow returns the profile wizard of the role.
func (r Role) ProfileFlow() Flow {
	if r == RoleSponsor {
		return FlowSponsorProfile
	}
	return FlowScholarProfile
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleScholar, RoleSponsor:
		return Role(s), true
	}
	return "", false
}

type Flow string

const (
	FlowScholarProfile Flow = "scholar_profile"
	FlowSponsorProfile Flow = "sponsor_profile"
	FlowScholarship    Flow = "scholarship"
)

func (f Flow) Role() Role {
	if f == FlowScholarProfile {
		return RoleScholar
	}
	return RoleSponsor
}

// Gated reports whether navigation in the flow is bounded by the completion gate.
func (f Flow) Gated() bool {
	return f == FlowScholarship
}

type StepKey string

// Keys shared by more than one flow resolve to different payloads per flow.
const (
	StepPersonal        StepKey = "personal"
	StepAddress         StepKey = "address"
	StepContact         StepKey = "contact"
	StepEducation       StepKey = "education"
	StepAcademicRecords StepKey = "academic-records"
	StepTestScores      StepKey = "test-scores"
	StepFinancialInfo   StepKey = "financial-info"
	StepFamily          StepKey = "family"
	StepEmployment      StepKey = "employment"
	StepExtracurricular StepKey = "extracurricular"
	StepAwards          StepKey = "awards"
	StepEssays          StepKey = "essays"
	StepReferences      StepKey = "references"
	StepDocuments       StepKey = "documents"
	StepPreferences     StepKey = "preferences"
	StepVerification    StepKey = "verification"
	StepDisclosures     StepKey = "disclosures"
	StepReview          StepKey = "review"

	StepOrganization       StepKey = "organization"
	StepFundingPreferences StepKey = "funding-preferences"
	StepLogo               StepKey = "logo"

	StepDetails     StepKey = "details"
	StepFunding     StepKey = "funding"
	StepEligibility StepKey = "eligibility"
	StepSelection   StepKey = "selection"
)

type SelectionMethod string

const (
	SelectionSelf    SelectionMethod = "SelfSelection"
	SelectionMatched SelectionMethod = "MatchedScholar"
)

type ScholarshipStatus string

const (
	ScholarshipDraft     ScholarshipStatus = "draft"
	ScholarshipSubmitted ScholarshipStatus = "submitted"
	ScholarshipActive    ScholarshipStatus = "active"
	ScholarshipClosed    ScholarshipStatus = "closed"
)

type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "bool"
	FieldList   FieldKind = "list"
	FieldFile   FieldKind = "file"
)

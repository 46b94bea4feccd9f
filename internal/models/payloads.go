package models

// StepPayload is the typed value of one wizard step. Each (flow, step) pair
// has exactly one concrete payload type.
type StepPayload interface {
	StepFlow() Flow
	StepKey() StepKey
}

// FileAttacher is implemented by payloads of file-bearing steps. AttachFile
// stores an uploaded file URL into the named field and reports whether the
// field exists.
type FileAttacher interface {
	AttachFile(field, url string) bool
}

// Scholar profile.

type ScholarPersonal struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	DateOfBirth string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=female male other"`
}

type ScholarAddress struct {
	HomeAddress string `json:"homeAddress" validate:"required"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
}

type ScholarContact struct {
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	AlternatePhone string `json:"alternatePhone,omitempty"`
}

type ScholarEducation struct {
	Level          string `json:"level" validate:"required,oneof=highschool undergraduate postgraduate"`
	Institution    string `json:"institution" validate:"required"`
	FieldOfStudy   string `json:"fieldOfStudy,omitempty"`
	GraduationYear int    `json:"graduationYear,omitempty" validate:"omitempty,gte=1950,lte=2100"`
}

type ScholarAcademicRecords struct {
	GPA        float64 `json:"gpa,omitempty" validate:"omitempty,gte=0,lte=5"`
	ClassRank  string  `json:"classRank,omitempty"`
	Transcript string  `json:"transcript,omitempty" validate:"omitempty,url"`
}

func (p *ScholarAcademicRecords) AttachFile(field, url string) bool {
	if field != "transcript" {
		return false
	}
	p.Transcript = url
	return true
}

type ScholarTestScores struct {
	TestName string `json:"testName,omitempty"`
	Score    string `json:"score,omitempty"`
	TestDate string `json:"testDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ScholarFinancialInfo struct {
	HouseholdIncome int  `json:"householdIncome" validate:"gte=0"`
	Dependents      int  `json:"dependents" validate:"gte=0"`
	ReceivesAid     bool `json:"receivesAid"`
}

type ScholarFamily struct {
	GuardianName       string `json:"guardianName" validate:"required"`
	GuardianPhone      string `json:"guardianPhone,omitempty"`
	GuardianOccupation string `json:"guardianOccupation,omitempty"`
	Siblings           int    `json:"siblings" validate:"gte=0"`
}

type ScholarEmployment struct {
	Employed     bool   `json:"employed"`
	Employer     string `json:"employer,omitempty" validate:"required_if=Employed true"`
	Position     string `json:"position,omitempty"`
	HoursPerWeek int    `json:"hoursPerWeek" validate:"gte=0,lte=168"`
}

type ScholarExtracurricular struct {
	Activities []string `json:"activities,omitempty"`
	Leadership string   `json:"leadership,omitempty"`
}

type ScholarAwards struct {
	Awards []string `json:"awards,omitempty"`
}

type ScholarEssays struct {
	PersonalStatement string `json:"personalStatement" validate:"required,max=5000"`
	CareerGoals       string `json:"careerGoals,omitempty" validate:"max=2000"`
}

type ScholarReferences struct {
	RefereeName  string `json:"refereeName" validate:"required"`
	RefereeEmail string `json:"refereeEmail" validate:"required,email"`
	Relationship string `json:"relationship,omitempty"`
}

type ScholarDocuments struct {
	CV           string   `json:"cv" validate:"required,url"`
	IDDocument   string   `json:"idDocument,omitempty" validate:"omitempty,url"`
	Certificates []string `json:"certificates,omitempty" validate:"dive,url"`
}

func (p *ScholarDocuments) AttachFile(field, url string) bool {
	switch field {
	case "cv":
		p.CV = url
	case "idDocument":
		p.IDDocument = url
	case "certificates":
		p.Certificates = append(p.Certificates, url)
	default:
		return false
	}
	return true
}

type ScholarPreferences struct {
	Categories     []string `json:"categories,omitempty"`
	StudyCountries []string `json:"studyCountries,omitempty"`
	MinAmount      int      `json:"minAmount" validate:"gte=0"`
}

type ScholarVerification struct {
	IDType   string `json:"idType" validate:"required,oneof=passport national_id drivers_license"`
	IDNumber string `json:"idNumber" validate:"required"`
	IDImage  string `json:"idImage" validate:"required,url"`
}

func (p *ScholarVerification) AttachFile(field, url string) bool {
	if field != "idImage" {
		return false
	}
	p.IDImage = url
	return true
}

type ScholarDisclosures struct {
	CriminalRecord bool   `json:"criminalRecord"`
	Disabilities   string `json:"disabilities,omitempty"`
	ConsentGiven   bool   `json:"consentGiven" validate:"required"`
}

type ScholarReview struct {
	Confirmed bool `json:"confirmed" validate:"required"`
}

func (*ScholarPersonal) StepFlow() Flow        { return FlowScholarProfile }
func (*ScholarAddress) StepFlow() Flow         { return FlowScholarProfile }
func (*ScholarContact) StepFlow() Flow         { return FlowScholarProfile }
func (*ScholarEducation) StepFlow() Flow       { return FlowScholarProfile }
func (*ScholarAcademicRecords) StepFlow() Flow { return FlowScholarProfile }
func (*ScholarTestScores) StepFlow() Flow      { return FlowScholarProfile }
func (*ScholarFinancialInfo) StepFlow() Flow   { return FlowScholarProfile }
func (*ScholarFamily) StepFlow() Flow          { return FlowScholarProfile }
func (*ScholarEmployment) StepFlow() Flow      { return FlowScholarProfile }
func (*ScholarExtracurricular) StepFlow() Flow { return FlowScholarProfile }
func (*ScholarAwards) StepFlow() Flow          { return FlowScholarProfile }
func (*ScholarEssays) StepFlow() Flow          { return FlowScholarProfile }
func (*ScholarReferences) StepFlow() Flow      { return FlowScholarProfile }
func (*ScholarDocuments) StepFlow() Flow       { return FlowScholarProfile }
func (*ScholarPreferences) StepFlow() Flow     { return FlowScholarProfile }
func (*ScholarVerification) StepFlow() Flow    { return FlowScholarProfile }
func (*ScholarDisclosures) StepFlow() Flow     { return FlowScholarProfile }
func (*ScholarReview) StepFlow() Flow          { return FlowScholarProfile }

func (*ScholarPersonal) StepKey() StepKey        { return StepPersonal }
func (*ScholarAddress) StepKey() StepKey         { return StepAddress }
func (*ScholarContact) StepKey() StepKey         { return StepContact }
func (*ScholarEducation) StepKey() StepKey       { return StepEducation }
func (*ScholarAcademicRecords) StepKey() StepKey { return StepAcademicRecords }
func (*ScholarTestScores) StepKey() StepKey      { return StepTestScores }
func (*ScholarFinancialInfo) StepKey() StepKey   { return StepFinancialInfo }
func (*ScholarFamily) StepKey() StepKey          { return StepFamily }
func (*ScholarEmployment) StepKey() StepKey      { return StepEmployment }
func (*ScholarExtracurricular) StepKey() StepKey { return StepExtracurricular }
func (*ScholarAwards) StepKey() StepKey          { return StepAwards }
func (*ScholarEssays) StepKey() StepKey          { return StepEssays }
func (*ScholarReferences) StepKey() StepKey      { return StepReferences }
func (*ScholarDocuments) StepKey() StepKey       { return StepDocuments }
func (*ScholarPreferences) StepKey() StepKey     { return StepPreferences }
func (*ScholarVerification) StepKey() StepKey    { return StepVerification }
func (*ScholarDisclosures) StepKey() StepKey     { return StepDisclosures }
func (*ScholarReview) StepKey() StepKey          { return StepReview }

// Sponsor profile.

type SponsorOrganization struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=individual company foundation government ngo"`
	Website     string `json:"website,omitempty" validate:"omitempty,url"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

type SponsorContact struct {
	ContactName string `json:"contactName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty"`
}

type SponsorAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city,omitempty"`
	Country string `json:"country" validate:"required"`
}

type SponsorFundingPreferences struct {
	Categories   []string `json:"categories,omitempty"`
	AnnualBudget int      `json:"annualBudget" validate:"gte=0"`
	Currency     string   `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type SponsorLogo struct {
	Logo string `json:"logo" validate:"required,url"`
}

func (p *SponsorLogo) AttachFile(field, url string) bool {
	if field != "logo" {
		return false
	}
	p.Logo = url
	return true
}

type SponsorVerification struct {
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	TaxID              string `json:"taxId,omitempty"`
	Certificate        string `json:"certificate" validate:"required,url"`
}

func (p *SponsorVerification) AttachFile(field, url string) bool {
	if field != "certificate" {
		return false
	}
	p.Certificate = url
	return true
}

type SponsorReview struct {
	Confirmed bool `json:"confirmed" validate:"required"`
}

func (*SponsorOrganization) StepFlow() Flow       { return FlowSponsorProfile }
func (*SponsorContact) StepFlow() Flow            { return FlowSponsorProfile }
func (*SponsorAddress) StepFlow() Flow            { return FlowSponsorProfile }
func (*SponsorFundingPreferences) StepFlow() Flow { return FlowSponsorProfile }
func (*SponsorLogo) StepFlow() Flow               { return FlowSponsorProfile }
func (*SponsorVerification) StepFlow() Flow       { return FlowSponsorProfile }
func (*SponsorReview) StepFlow() Flow             { return FlowSponsorProfile }

func (*SponsorOrganization) StepKey() StepKey       { return StepOrganization }
func (*SponsorContact) StepKey() StepKey            { return StepContact }
func (*SponsorAddress) StepKey() StepKey            { return StepAddress }
func (*SponsorFundingPreferences) StepKey() StepKey { return StepFundingPreferences }
func (*SponsorLogo) StepKey() StepKey               { return StepLogo }
func (*SponsorVerification) StepKey() StepKey       { return StepVerification }
func (*SponsorReview) StepKey() StepKey             { return StepReview }

// Scholarship creation.

type ScholarshipDetails struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Deadline    string `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ScholarshipFunding carries IsPaid and Reference as server-owned fields;
// they are echoed back on save and never set by the wizard.
type ScholarshipFunding struct {
	Amount    int    `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3"`
	Slots     int    `json:"slots" validate:"required,gte=1"`
	IsPaid    bool   `json:"isPaid"`
	Reference string `json:"reference,omitempty"`
}

type ScholarshipEligibility struct {
	MinGPA    float64  `json:"minGpa,omitempty" validate:"omitempty,gte=0,lte=5"`
	Levels    []string `json:"levels,omitempty" validate:"dive,oneof=highschool undergraduate postgraduate"`
	Countries []string `json:"countries,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

type ScholarshipSelection struct {
	Method   SelectionMethod `json:"method" validate:"required,oneof=SelfSelection MatchedScholar"`
	Criteria string          `json:"criteria,omitempty"`
}

type ScholarshipDocuments struct {
	RequiredDocuments []string `json:"requiredDocuments" validate:"min=1"`
	Instructions      string   `json:"instructions,omitempty"`
	Template          string   `json:"template,omitempty" validate:"omitempty,url"`
}

func (p *ScholarshipDocuments) AttachFile(field, url string) bool {
	if field != "template" {
		return false
	}
	p.Template = url
	return true
}

func (*ScholarshipDetails) StepFlow() Flow     { return FlowScholarship }
func (*ScholarshipFunding) StepFlow() Flow     { return FlowScholarship }
func (*ScholarshipEligibility) StepFlow() Flow { return FlowScholarship }
func (*ScholarshipSelection) StepFlow() Flow   { return FlowScholarship }
func (*ScholarshipDocuments) StepFlow() Flow   { return FlowScholarship }

func (*ScholarshipDetails) StepKey() StepKey     { return StepDetails }
func (*ScholarshipFunding) StepKey() StepKey     { return StepFunding }
func (*ScholarshipEligibility) StepKey() StepKey { return StepEligibility }
func (*ScholarshipSelection) StepKey() StepKey   { return StepSelection }
func (*ScholarshipDocuments) StepKey() StepKey   { return StepDocuments }

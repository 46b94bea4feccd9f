package stubapi

import (
	"net/http"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func snapshot(sc *models.Scholarship) *models.Scholarship {
	c := *sc
	return &c
}

// applyPatch validates and merges a partial update. Step payloads replace the
// stored value; funding keeps its server-owned payment state.
func (s *Server) applyPatch(sc *models.Scholarship, patch apiclient.ScholarshipPatch) error {
	for _, p := range patchPayloads(patch) {
		if err := registry.Validate(p); err != nil {
			return err
		}
	}
	if patch.Details != nil {
		d := *patch.Details
		sc.Details = &d
	}
	if patch.Funding != nil {
		f := *patch.Funding
		f.IsPaid, f.Reference = false, ""
		if sc.Funding != nil {
			f.IsPaid, f.Reference = sc.Funding.IsPaid, sc.Funding.Reference
		}
		sc.Funding = &f
	}
	if patch.Eligibility != nil {
		e := *patch.Eligibility
		sc.Eligibility = &e
	}
	if patch.Selection != nil {
		sel := *patch.Selection
		sc.Selection = &sel
	}
	if patch.Documents != nil {
		d := *patch.Documents
		sc.Documents = &d
	}
	if patch.MarkStep != "" && sc.Payload(patch.MarkStep) != nil {
		markCompleted(&sc.Completed, patch.MarkStep)
	}
	if patch.CurrentStep != "" {
		sc.CurrentStep = patch.CurrentStep
	}
	sc.UpdatedAt = s.now().UTC()
	return nil
}

func patchPayloads(patch apiclient.ScholarshipPatch) []models.StepPayload {
	var out []models.StepPayload
	if patch.Details != nil {
		out = append(out, patch.Details)
	}
	if patch.Funding != nil {
		out = append(out, patch.Funding)
	}
	if patch.Eligibility != nil {
		out = append(out, patch.Eligibility)
	}
	if patch.Selection != nil {
		out = append(out, patch.Selection)
	}
	if patch.Documents != nil {
		out = append(out, patch.Documents)
	}
	return out
}

func markCompleted(c *models.ScholarshipSteps, key models.StepKey) {
	switch key {
	case models.StepDetails:
		c.Details = true
	case models.StepFunding:
		c.Funding = true
	case models.StepEligibility:
		c.Eligibility = true
	case models.StepSelection:
		c.Selection = true
	case models.StepDocuments:
		c.Documents = true
	}
}

func (s *Server) createScholarship(c *gin.Context) {
	var patch apiclient.ScholarshipPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	acc := currentAccount(c)
	now := s.now().UTC()
	sc := &models.Scholarship{
		ID:        uuid.NewString(),
		SponsorID: acc.ID,
		Status:    models.ScholarshipDraft,
		CreatedAt: now,
	}
	if err := s.applyPatch(sc, patch); err != nil {
		s.validationFailed(c, err)
		return
	}

	s.mu.Lock()
	s.scholarships[sc.ID] = sc
	out := snapshot(sc)
	s.mu.Unlock()

	s.logger.Info("scholarship created", zap.String("id", sc.ID), zap.String("sponsor", acc.ID))
	c.JSON(http.StatusCreated, envelope{Data: out})
}

// owned looks up a scholarship of the current sponsor. Must be called with s.mu held.
func (s *Server) owned(c *gin.Context, id string) (*models.Scholarship, bool) {
	sc, ok := s.scholarships[id]
	if !ok || sc.SponsorID != currentAccount(c).ID {
		s.fail(c, http.StatusNotFound, "Not Found", "scholarship not found")
		return nil, false
	}
	return sc, true
}

func (s *Server) getScholarship(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, envelope{Data: snapshot(sc)})
}

func (s *Server) patchScholarship(c *gin.Context) {
	var patch apiclient.ScholarshipPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	if sc.Status == models.ScholarshipClosed {
		s.fail(c, http.StatusConflict, "Conflict", "scholarship is closed")
		return
	}
	if err := s.applyPatch(sc, patch); err != nil {
		s.validationFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Data: snapshot(sc)})
}

func (s *Server) submitScholarship(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	if missing := missingSteps(sc); len(missing) > 0 {
		s.failDetails(c, http.StatusUnprocessableEntity, "Unprocessable Entity", "scholarship is incomplete",
			map[string]any{"missing": missing})
		return
	}
	if sc.Status == models.ScholarshipDraft {
		sc.Status = models.ScholarshipSubmitted
		sc.UpdatedAt = s.now().UTC()
	}
	s.logger.Info("scholarship submitted", zap.String("id", sc.ID))
	c.JSON(http.StatusOK, envelope{Data: snapshot(sc)})
}

func missingSteps(sc *models.Scholarship) []models.StepKey {
	f := sc.Flags()
	var missing []models.StepKey
	if !f.Details {
		missing = append(missing, models.StepDetails)
	}
	if !f.FundingPaid {
		missing = append(missing, models.StepFunding)
	}
	if !f.Eligibility {
		missing = append(missing, models.StepEligibility)
	}
	if !f.Selection {
		missing = append(missing, models.StepSelection)
	}
	if f.RequiresDocuments() && !f.Documents {
		missing = append(missing, models.StepDocuments)
	}
	return missing
}

func (s *Server) initFunding(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.owned(c, c.Param("id"))
	if !ok {
		return
	}
	if sc.Funding == nil {
		s.fail(c, http.StatusUnprocessableEntity, "Unprocessable Entity", "funding step not saved")
		return
	}
	if sc.Funding.IsPaid {
		s.fail(c, http.StatusConflict, "Conflict", "scholarship already funded")
		return
	}

	ref := "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	s.payments[ref] = &payment{Reference: ref, ScholarshipID: sc.ID}
	f := *sc.Funding
	f.Reference = ref
	sc.Funding = &f
	s.transactions = append(s.transactions, models.Transaction{
		ID:            uuid.NewString(),
		Reference:     ref,
		ScholarshipID: sc.ID,
		Amount:        f.Amount * f.Slots,
		Currency:      f.Currency,
		Status:        "pending",
		Type:          "funding",
		CreatedAt:     s.now().UTC(),
	})

	c.JSON(http.StatusOK, envelope{Data: models.FundingInit{
		Reference:        ref,
		AuthorizationURL: s.baseURL + "/pay/" + ref,
		Amount:           f.Amount * f.Slots,
		Currency:         f.Currency,
	}})
}

// checkout stands in for the payment provider's hosted page: opening the
// authorization URL completes the payment.
func (s *Server) checkout(c *gin.Context) {
	s.mu.Lock()
	p, ok := s.payments[c.Param("reference")]
	if ok {
		p.Paid = true
	}
	s.mu.Unlock()
	if !ok {
		c.String(http.StatusNotFound, "unknown payment reference")
		return
	}
	c.String(http.StatusOK, "Payment %s completed. Return to the bot and verify it.", p.Reference)
}

func (s *Server) verifyPayment(c *gin.Context) {
	ref := c.Param("reference")

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[ref]
	if !ok {
		s.fail(c, http.StatusNotFound, "Not Found", "unknown payment reference")
		return
	}
	sc, ok := s.owned(c, p.ScholarshipID)
	if !ok {
		return
	}

	status := "pending"
	if p.Paid {
		status = "success"
		if sc.Funding != nil && !sc.Funding.IsPaid {
			f := *sc.Funding
			f.IsPaid = true
			sc.Funding = &f
			sc.Completed.Funding = true
			sc.UpdatedAt = s.now().UTC()
		}
		for i := range s.transactions {
			if s.transactions[i].Reference == ref {
				s.transactions[i].Status = "success"
			}
		}
	}
	c.JSON(http.StatusOK, envelope{Data: models.PaymentVerification{
		Reference:     ref,
		Status:        status,
		ScholarshipID: sc.ID,
		Scholarship:   snapshot(sc),
	}})
}

package stubapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"github.com/gin-gonic/gin"
)

func (s *Server) getProfileStep(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow := role.ProfileFlow()
		step := models.StepKey(c.Param("step"))
		if !s.reg.Has(flow, step) {
			s.fail(c, http.StatusNotFound, "Not Found", "unknown step "+string(step))
			return
		}
		acc := currentAccount(c)

		s.mu.Lock()
		defer s.mu.Unlock()
		data := s.profiles[acc.ID][step]
		if data == nil {
			data = json.RawMessage("null")
		}
		c.JSON(http.StatusOK, apiclient.ProfileStep{
			Data:           data,
			CompletedSteps: slices.Clone(s.completed[acc.ID]),
		})
	}
}

func (s *Server) patchProfileStep(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow := role.ProfileFlow()
		step := models.StepKey(c.Param("step"))
		if !s.reg.Has(flow, step) {
			s.fail(c, http.StatusNotFound, "Not Found", "unknown step "+string(step))
			return
		}
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		p, err := registry.Decode(flow, step, raw)
		if err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		if err := registry.Validate(p); err != nil {
			s.validationFailed(c, err)
			return
		}
		stored, _ := json.Marshal(p)
		acc := currentAccount(c)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.profiles[acc.ID] == nil {
			s.profiles[acc.ID] = make(map[models.StepKey]json.RawMessage)
		}
		s.profiles[acc.ID][step] = stored
		if !slices.Contains(s.completed[acc.ID], step) {
			s.completed[acc.ID] = append(s.completed[acc.ID], step)
		}
		applyDisplayFields(acc, p)

		user := userOf(acc)
		c.JSON(http.StatusOK, apiclient.ProfileStep{
			Data:           stored,
			CompletedSteps: slices.Clone(s.completed[acc.ID]),
			User:           &user,
		})
	}
}

// applyDisplayFields denormalises name and avatar into the account.
func applyDisplayFields(acc *account, p models.StepPayload) {
	switch v := p.(type) {
	case *models.ScholarPersonal:
		acc.Name = strings.TrimSpace(v.FirstName + " " + v.LastName)
	case *models.SponsorOrganization:
		acc.Name = v.Name
	case *models.SponsorLogo:
		acc.Avatar = v.Logo
	}
}

func (s *Server) validationFailed(c *gin.Context, err error) {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	details := make(map[string]any, len(verr.Violations))
	for _, v := range verr.Violations {
		details[v.Field] = v.Rule
	}
	s.failDetails(c, http.StatusUnprocessableEntity, "Unprocessable Entity", verr.Error(), details)
}

package stubapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/gin-gonic/gin"
)

func parseListQuery(c *gin.Context) (models.ListQuery, error) {
	q := models.ListQuery{
		Q:        c.Query("q"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Method:   c.Query("method"),
		Page:     1,
		Limit:    20,
	}
	for name, dst := range map[string]*int{"page": &q.Page, "limit": &q.Limit} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return q, fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = n
		}
	}
	for name, dst := range map[string]**time.Time{"dateFrom": &q.DateFrom, "dateTo": &q.DateTo} {
		if v := c.Query(name); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return q, fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = &t
		}
	}
	return q, nil
}

func paginate[T any](items []T, q models.ListQuery) models.Page[T] {
	meta := models.PageMeta{Page: q.Page, Limit: q.Limit, Total: len(items)}
	start := (q.Page - 1) * q.Limit
	if start > len(items) {
		start = len(items)
	}
	end := start + q.Limit
	if end > len(items) {
		end = len(items)
	}
	data := append([]T{}, items[start:end]...)
	return models.Page[T]{Data: data, Meta: meta}
}

func inRange(t time.Time, q models.ListQuery) bool {
	if q.DateFrom != nil && t.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && !t.Before(q.DateTo.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (s *Server) listScholarships(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	acc := currentAccount(c)

	s.mu.Lock()
	var items []models.Scholarship
	for _, sc := range s.scholarships {
		if sc.SponsorID != acc.ID || !matchScholarship(sc, q) {
			continue
		}
		items = append(items, *sc)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	c.JSON(http.StatusOK, paginate(items, q))
}

func matchScholarship(sc *models.Scholarship, q models.ListQuery) bool {
	if q.Status != "" && string(sc.Status) != q.Status {
		return false
	}
	if q.Q != "" && (sc.Details == nil || !containsFold(sc.Details.Title+" "+sc.Details.Description, q.Q)) {
		return false
	}
	if q.Category != "" && (sc.Details == nil || !strings.EqualFold(sc.Details.Category, q.Category)) {
		return false
	}
	if q.Method != "" && (sc.Selection == nil || string(sc.Selection.Method) != q.Method) {
		return false
	}
	return inRange(sc.CreatedAt, q)
}

func (s *Server) listApplications(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := parseListQuery(c)
		if err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		acc := currentAccount(c)

		s.mu.Lock()
		var items []models.Application
		for _, a := range s.applications {
			if role == models.RoleScholar && a.ScholarID != acc.ID {
				continue
			}
			if role == models.RoleSponsor {
				sc, ok := s.scholarships[a.ScholarshipID]
				if !ok || sc.SponsorID != acc.ID {
					continue
				}
			}
			if q.Status != "" && a.Status != q.Status {
				continue
			}
			if !inRange(a.CreatedAt, q) {
				continue
			}
			items = append(items, a)
		}
		s.mu.Unlock()
		c.JSON(http.StatusOK, paginate(items, q))
	}
}

func (s *Server) listTransactions(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	acc := currentAccount(c)

	s.mu.Lock()
	var items []models.Transaction
	for _, t := range s.transactions {
		sc, ok := s.scholarships[t.ScholarshipID]
		if !ok || sc.SponsorID != acc.ID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Type != "" && t.Type != q.Type {
			continue
		}
		if q.Q != "" && !containsFold(t.Reference, q.Q) {
			continue
		}
		if !inRange(t.CreatedAt, q) {
			continue
		}
		items = append(items, t)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, paginate(items, q))
}

// AddApplication seeds an application record; the stub has no apply endpoint.
func (s *Server) AddApplication(a models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	s.applications = append(s.applications, a)
}

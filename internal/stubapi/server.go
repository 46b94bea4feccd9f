// Package stubapi is an in-memory implementation of the backend endpoints
// used for local development and integration tests.
package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VerificationCode is the code every signup and password reset accepts.
const VerificationCode = "123456"

type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type account struct {
	ID       string
	Role     models.Role
	Email    string
	Password string
	Name     string
	Avatar   string
	Verified bool
}

type payment struct {
	Reference     string
	ScholarshipID string
	Paid          bool
}

type Server struct {
	logger  *zap.Logger
	reg     *registry.Registry
	baseURL string
	now     func() time.Time

	mu           sync.Mutex
	accounts     map[string]*account // role + ":" + email
	tokens       map[string]*account
	profiles     map[string]map[models.StepKey]json.RawMessage
	completed    map[string][]models.StepKey
	scholarships map[string]*models.Scholarship
	payments     map[string]*payment
	files        map[string]storedFile
	applications []models.Application
	transactions []models.Transaction
}

type Option func(*Server)

// WithBaseURL sets the public prefix of uploaded file and checkout URLs.
func WithBaseURL(u string) Option {
	return func(s *Server) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:       logger.Named("stubapi"),
		reg:          registry.MustLoad(),
		baseURL:      "http://localhost:8081",
		now:          time.Now,
		accounts:     make(map[string]*account),
		tokens:       make(map[string]*account),
		profiles:     make(map[string]map[models.StepKey]json.RawMessage),
		completed:    make(map[string][]models.StepKey),
		scholarships: make(map[string]*models.Scholarship),
		payments:     make(map[string]*payment),
		files:        make(map[string]storedFile),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the gin engine serving every backend route.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	for _, role := range []models.Role{models.RoleScholar, models.RoleSponsor} {
		g := r.Group("/" + role.PathSegment() + "/api")
		s.registerAuth(g.Group("/auth"), role)

		authed := g.Group("", s.requireAuth(role))
		authed.GET("/profile/:step", s.getProfileStep(role))
		authed.PATCH("/profile/:step", s.patchProfileStep(role))
		authed.GET("/applications", s.listApplications(role))
	}

	sponsors := r.Group("/sponsors/api", s.requireAuth(models.RoleSponsor))
	sponsors.POST("/scholarship", s.createScholarship)
	sponsors.GET("/scholarship", s.listScholarships)
	sponsors.GET("/scholarship/verify/:reference", s.verifyPayment)
	sponsors.GET("/scholarship/:id", s.getScholarship)
	sponsors.PATCH("/scholarship/:id", s.patchScholarship)
	sponsors.POST("/scholarship/:id/submit", s.submitScholarship)
	sponsors.POST("/scholarship/:id/fund/init", s.initFunding)
	sponsors.GET("/transactions", s.listTransactions)

	r.POST("/utilities/api/upload", s.requireAuth(""), s.upload)
	r.GET("/files/:id/:name", s.serveFile)
	r.GET("/pay/:reference", s.checkout)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("took", time.Since(start)),
		)
	}
}

const accountKey = "account"

// requireAuth resolves the bearer token. An empty role accepts any account.
func (s *Server) requireAuth(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		s.mu.Lock()
		acc, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			s.fail(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid token")
			c.Abort()
			return
		}
		if role != "" && acc.Role != role {
			s.fail(c, http.StatusForbidden, "Forbidden", "endpoint requires role "+string(role))
			c.Abort()
			return
		}
		c.Set(accountKey, acc)
		c.Next()
	}
}

func currentAccount(c *gin.Context) *account {
	acc, _ := c.MustGet(accountKey).(*account)
	return acc
}

func (s *Server) fail(c *gin.Context, status int, title, message string) {
	c.JSON(status, ErrorResponse{Error: title, Message: message, Timestamp: s.now().UTC()})
}

func (s *Server) failDetails(c *gin.Context, status int, title, message string, details map[string]any) {
	c.JSON(status, ErrorResponse{Error: title, Message: message, Details: details, Timestamp: s.now().UTC()})
}

type envelope struct {
	Data any `json:"data"`
}

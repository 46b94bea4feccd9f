// Package apiclient is the HTTP client for the scholarship platform backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/google/uuid"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid identifier")
)

const RequestIDHeader = "X-Request-ID"

// Client is an HTTP client for the backend. Token is the bearer token of the
// logged-in user; use WithToken to derive a per-user client.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client authenticated as another user. The
// underlying http.Client is shared.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

// --- Auth types ---

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// User is the account summary returned by login and profile saves.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Auth methods ---

func (c *Client) Signup(ctx context.Context, role models.Role, req SignupRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "signup"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, role models.Role, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "login"), creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify confirms the emailed code and returns a session token.
func (c *Client) Verify(ctx context.Context, role models.Role, req VerifyRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "verify"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResendCode(ctx context.Context, role models.Role, email string) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"email": email}
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "resend-code"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ForgotPassword(ctx context.Context, role models.Role, email string) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"email": email}
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "forgot-password"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, role models.Role, req ResetPasswordRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doNoAuth(ctx, http.MethodPost, authPath(role, "reset-password"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func authPath(role models.Role, action string) string {
	return fmt.Sprintf("/%s/api/auth/%s", role.PathSegment(), action)
}

// --- Profile types ---

// ProfileStep is the body of GET and PATCH /{role}/api/profile/{step}.
type ProfileStep struct {
	Data           json.RawMessage  `json:"data"`
	CompletedSteps []models.StepKey `json:"completedSteps"`
	User           *User            `json:"user,omitempty"`
}

// --- Profile methods ---

// GetProfileStep returns the raw persisted value of one profile step.
func (c *Client) GetProfileStep(ctx context.Context, role models.Role, step models.StepKey) (*ProfileStep, error) {
	var resp ProfileStep
	if err := c.do(ctx, http.MethodGet, profilePath(role, step), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchProfileStep persists one profile step and returns the acknowledged value.
func (c *Client) PatchProfileStep(ctx context.Context, role models.Role, step models.StepKey, payload any) (*ProfileStep, error) {
	var resp ProfileStep
	if err := c.do(ctx, http.MethodPatch, profilePath(role, step), payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func profilePath(role models.Role, step models.StepKey) string {
	return fmt.Sprintf("/%s/api/profile/%s", role.PathSegment(), step)
}

// --- Scholarship types ---

// ScholarshipPatch is a partial update. Only non-nil step fields are sent.
type ScholarshipPatch struct {
	Details     *models.ScholarshipDetails     `json:"details,omitempty"`
	Funding     *models.ScholarshipFunding     `json:"funding,omitempty"`
	Eligibility *models.ScholarshipEligibility `json:"eligibility,omitempty"`
	Selection   *models.ScholarshipSelection   `json:"selection,omitempty"`
	Documents   *models.ScholarshipDocuments   `json:"documents,omitempty"`
	MarkStep    models.StepKey                 `json:"markStep,omitempty"`
	CurrentStep models.StepKey                 `json:"currentStep,omitempty"`
}

// PatchFor builds the partial update carrying one step payload.
func PatchFor(p models.StepPayload) (ScholarshipPatch, error) {
	patch := ScholarshipPatch{MarkStep: p.StepKey(), CurrentStep: p.StepKey()}
	switch v := p.(type) {
	case *models.ScholarshipDetails:
		patch.Details = v
	case *models.ScholarshipFunding:
		patch.Funding = v
	case *models.ScholarshipEligibility:
		patch.Eligibility = v
	case *models.ScholarshipSelection:
		patch.Selection = v
	case *models.ScholarshipDocuments:
		patch.Documents = v
	default:
		return patch, fmt.Errorf("%w: %T is not a scholarship step", models.ErrUnknownStep, p)
	}
	return patch, nil
}

// segment escapes a user-supplied id for use as one path segment.
func segment(id string) (string, error) {
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return url.PathEscape(id), nil
}

func scholarshipPath(id, suffix string) (string, error) {
	seg, err := segment(id)
	if err != nil {
		return "", err
	}
	return "/sponsors/api/scholarship/" + seg + suffix, nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// --- Scholarship methods ---

func (c *Client) CreateScholarship(ctx context.Context, patch ScholarshipPatch) (*models.Scholarship, error) {
	var resp envelope[*models.Scholarship]
	if err := c.do(ctx, http.MethodPost, "/sponsors/api/scholarship", patch, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetScholarship(ctx context.Context, id string) (*models.Scholarship, error) {
	path, err := scholarshipPath(id, "")
	if err != nil {
		return nil, err
	}
	var resp envelope[*models.Scholarship]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) PatchScholarship(ctx context.Context, id string, patch ScholarshipPatch) (*models.Scholarship, error) {
	path, err := scholarshipPath(id, "")
	if err != nil {
		return nil, err
	}
	var resp envelope[*models.Scholarship]
	if err := c.do(ctx, http.MethodPatch, path, patch, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) SubmitScholarship(ctx context.Context, id string) (*models.Scholarship, error) {
	path, err := scholarshipPath(id, "/submit")
	if err != nil {
		return nil, err
	}
	var resp envelope[*models.Scholarship]
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// InitFunding starts a payment for the scholarship's funding amount.
func (c *Client) InitFunding(ctx context.Context, id string) (*models.FundingInit, error) {
	path, err := scholarshipPath(id, "/fund/init")
	if err != nil {
		return nil, err
	}
	var resp envelope[*models.FundingInit]
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerification, error) {
	ref, err := segment(reference)
	if err != nil {
		return nil, err
	}
	var resp envelope[*models.PaymentVerification]
	if err := c.do(ctx, http.MethodGet, "/sponsors/api/scholarship/verify/"+ref, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// --- Listing methods ---

func (c *Client) ListScholarships(ctx context.Context, q models.ListQuery) (*models.Page[models.Scholarship], error) {
	return list[models.Scholarship](ctx, c, "/sponsors/api/scholarship", q)
}

func (c *Client) ListApplications(ctx context.Context, role models.Role, q models.ListQuery) (*models.Page[models.Application], error) {
	return list[models.Application](ctx, c, fmt.Sprintf("/%s/api/applications", role.PathSegment()), q)
}

func (c *Client) ListTransactions(ctx context.Context, q models.ListQuery) (*models.Page[models.Transaction], error) {
	return list[models.Transaction](ctx, c, "/sponsors/api/transactions", q)
}

func list[T any](ctx context.Context, c *Client, path string, q models.ListQuery) (*models.Page[T], error) {
	var resp models.Page[T]
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Values().Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Upload ---

type UploadResponse struct {
	URL string `json:"url"`
}

// Upload sends one file as multipart field "file" and returns its public URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/utilities/api/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.send(req, &resp, true); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("upload %s: empty url in response", name)
	}
	return resp.URL, nil
}

// --- HTTP helpers ---

// APIError is the standard error body from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s", e.Status, e.Code)
}

// do executes an authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, true)
}

// doNoAuth executes an unauthenticated JSON request.
func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, false)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, result, auth)
}

func (c *Client) send(req *http.Request, result any, auth bool) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		default:
			return apiErr
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

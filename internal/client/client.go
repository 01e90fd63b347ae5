package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"learnportal/internal/learning"
	"learnportal/internal/models"
)

// APIError is a non-2xx response from the progress API
type APIError struct {
	StatusCode int
	Message    string
	Fields     []models.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("progress api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("progress api: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// ProgressClient talks to the progress API on behalf of one authenticated
// student. It implements learning.Store.
type ProgressClient struct {
	baseURL    string
	studentID  string
	httpClient *http.Client
}

var _ learning.Store = (*ProgressClient)(nil)

// New creates a client that authenticates every request with token. Requests
// carry no client-wide timeout; callers bound them through ctx.
func New(ctx context.Context, baseURL, studentID, token string) *ProgressClient {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	return NewWithHTTPClient(baseURL, studentID, httpClient)
}

// NewWithHTTPClient creates a client over a caller-supplied HTTP client that
// already attaches credentials
func NewWithHTTPClient(baseURL, studentID string, httpClient *http.Client) *ProgressClient {
	return &ProgressClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		studentID:  studentID,
		httpClient: httpClient,
	}
}

func (c *ProgressClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp models.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil {
			apiErr.Message = errResp.Error
			apiErr.Fields = errResp.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// StartProgress registers that the student opened a submodule
func (c *ProgressClient) StartProgress(ctx context.Context, subModuleID string) error {
	return c.do(ctx, http.MethodPost, "/api/progress/start", models.StartProgressRequest{SubModuleID: subModuleID}, nil)
}

// UpdateProgress sends a watch time heartbeat
func (c *ProgressClient) UpdateProgress(ctx context.Context, update learning.ProgressUpdate) error {
	req := models.UpdateProgressRequest{
		SubModuleID:          update.SubModuleID,
		WatchTimeSeconds:     update.WatchTimeSeconds,
		CompletionPercentage: update.CompletionPercentage,
		Sequence:             update.Sequence,
	}
	return c.do(ctx, http.MethodPost, "/api/progress/update", req, nil)
}

// CompleteProgress marks a submodule completed
func (c *ProgressClient) CompleteProgress(ctx context.Context, subModuleID string) error {
	return c.do(ctx, http.MethodPost, "/api/progress/complete", models.CompleteProgressRequest{SubModuleID: subModuleID}, nil)
}

// GetModuleProgress fetches the module aggregate
func (c *ProgressClient) GetModuleProgress(ctx context.Context, moduleID string) (learning.ModuleProgress, error) {
	var mp models.ModuleProgress
	if err := c.do(ctx, http.MethodGet, "/api/progress/modules/"+url.PathEscape(moduleID), nil, &mp); err != nil {
		return learning.ModuleProgress{}, err
	}
	return toModuleProgress(mp), nil
}

// GetSubModuleProgress fetches the student's progress on one submodule
func (c *ProgressClient) GetSubModuleProgress(ctx context.Context, subModuleID string) (learning.Progress, error) {
	var p models.SubModuleProgress
	if err := c.do(ctx, http.MethodGet, "/api/progress/submodules/"+url.PathEscape(subModuleID), nil, &p); err != nil {
		return learning.Progress{}, err
	}
	return toProgress(p), nil
}

// CheckAccess asks whether the student may open a submodule
func (c *ProgressClient) CheckAccess(ctx context.Context, subModuleID string) (learning.AccessDecision, error) {
	var d models.AccessDecision
	if err := c.do(ctx, http.MethodGet, "/api/access/submodules/"+url.PathEscape(subModuleID), nil, &d); err != nil {
		return learning.AccessDecision{}, err
	}
	return learning.AccessDecision{CanAccess: d.CanAccess, Message: d.Message}, nil
}

// GetQuizAttempts fetches a student's attempt history
func (c *ProgressClient) GetQuizAttempts(ctx context.Context, studentID string) ([]learning.QuizAttempt, error) {
	if studentID == "" {
		studentID = c.studentID
	}
	var attempts []models.QuizAttempt
	if err := c.do(ctx, http.MethodGet, "/api/students/"+url.PathEscape(studentID)+"/quiz-attempts", nil, &attempts); err != nil {
		return nil, err
	}
	out := make([]learning.QuizAttempt, len(attempts))
	for i, a := range attempts {
		out[i] = toQuizAttempt(a)
	}
	return out, nil
}

// GetModuleMetadata fetches a module and its ordered submodules
func (c *ProgressClient) GetModuleMetadata(ctx context.Context, moduleID string) (learning.Module, error) {
	var m models.Module
	if err := c.do(ctx, http.MethodGet, "/api/modules/"+url.PathEscape(moduleID), nil, &m); err != nil {
		return learning.Module{}, err
	}
	return toModule(m), nil
}

// SubmitQuizAttempt records the student's quiz result
func (c *ProgressClient) SubmitQuizAttempt(ctx context.Context, quizGroupID, subModuleID string, score float64) (learning.QuizAttempt, error) {
	req := models.SubmitQuizAttemptRequest{QuizGroupID: quizGroupID, SubModuleID: subModuleID, Score: score}
	var attempt models.QuizAttempt
	if err := c.do(ctx, http.MethodPost, "/api/quiz-attempts", req, &attempt); err != nil {
		return learning.QuizAttempt{}, err
	}
	return toQuizAttempt(attempt), nil
}

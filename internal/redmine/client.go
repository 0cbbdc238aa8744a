package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/observability"
	"github.com/redmine-cli/rdm/internal/reqcontext"
)

const (
	// DefaultTimeout bounds one whole request/response exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 10 * time.Second

	// maxAttempts is the total attempt budget for idempotent calls.
	maxAttempts = 3
)

// retryInitialInterval seeds the jittered exponential backoff. Tests
// shrink it to keep the retry paths fast.
var retryInitialInterval = 500 * time.Millisecond

// Config carries the resolved connection settings for one server.
type Config struct {
	URL            string
	APIKey         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	UserAgent      string
}

// Client issues API calls against one Redmine-compatible server.
// Requests run strictly sequentially; the client holds no request
// pipeline.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	tracing    *observability.TracingManager
}

// New creates a client for the given server.
func New(cfg Config, logger *zap.SugaredLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "rdm"
	}

	// The default transport negotiates gzip transparently.
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:  logger,
		tracing: observability.NewDisabled(),
	}
}

// SetTracing attaches a tracing manager. The client defaults to a
// disabled manager, so this is optional.
func (c *Client) SetTracing(tm *observability.TracingManager) {
	if tm != nil {
		c.tracing = tm
	}
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiCall describes one logical request. The caller tags it idempotent
// (safe to retry) or not; mutations are never retried automatically
// because a blind retry can duplicate a side effect.
type apiCall struct {
	method     string
	path       string
	query      url.Values
	body       any
	idempotent bool
}

type apiResult struct {
	status int
	body   []byte
}

// httpStatusError marks a transient gateway status during retry.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("server returned %d %s", e.status, http.StatusText(e.status))
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do executes one logical call: marshal, send with the retry policy,
// classify the outcome. It returns the raw response body on success.
func (c *Client) do(ctx context.Context, call apiCall) ([]byte, error) {
	var payload []byte
	if call.body != nil {
		data, err := json.Marshal(call.body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Validation, err, "failed to serialize request body")
		}
		payload = data
	}

	requestID := reqcontext.GenerateRequestID()

	ctx, span := c.tracing.TraceAPIRequest(ctx, call.method, call.path)
	defer span.End()

	res, attempts, err := c.executeWithRetry(ctx, call, payload, requestID)
	if err != nil {
		c.tracing.SetSpanError(ctx, err)
		return nil, err
	}

	c.tracing.AddSpanAttributes(ctx,
		attribute.Int("http.status_code", res.status),
		attribute.Int("http.attempts", attempts),
	)

	body, err := c.classify(res)
	if err != nil {
		c.tracing.SetSpanError(ctx, err)
	}
	return body, err
}

// executeWithRetry applies the retry policy. Idempotent calls retry on
// connection failures and transient gateway statuses, capped at
// maxAttempts total tries with jittered exponential backoff. Mutations
// get exactly one attempt.
func (c *Client) executeWithRetry(ctx context.Context, call apiCall, payload []byte, requestID string) (*apiResult, int, error) {
	attempts := 0

	if !call.idempotent {
		attempts++
		res, err := c.attempt(ctx, call, payload, requestID, attempts)
		if err != nil {
			return nil, attempts, c.networkError(call, err, attempts)
		}
		if isTransientStatus(res.status) {
			return nil, attempts, c.networkError(call, &httpStatusError{status: res.status}, attempts)
		}
		return res, attempts, nil
	}

	operation := func() (*apiResult, error) {
		attempts++
		res, err := c.attempt(ctx, call, payload, requestID, attempts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if isTransientStatus(res.status) {
			return nil, &httpStatusError{status: res.status}
		}
		return res, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = retryInitialInterval

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.Debugw("transient request failure, backing off",
				"method", call.method,
				"path", call.path,
				"attempt", attempts,
				"delay", delay,
				"request_id", requestID,
				"error", err)
		}),
	)
	if err != nil {
		return nil, attempts, c.networkError(call, err, attempts)
	}
	return res, attempts, nil
}

// attempt performs exactly one HTTP exchange.
func (c *Client) attempt(ctx context.Context, call apiCall, payload []byte, requestID string, attempt int) (*apiResult, error) {
	requestURL := c.baseURL + call.path
	if len(call.query) > 0 {
		requestURL += "?" + call.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.method, requestURL, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(reqcontext.RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("sending request",
		"method", call.method,
		"path", call.path,
		"attempt", attempt,
		"request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debugw("received response",
		"method", call.method,
		"path", call.path,
		"status", resp.StatusCode,
		"attempt", attempt,
		"request_id", requestID)

	return &apiResult{status: resp.StatusCode, body: data}, nil
}

func (c *Client) networkError(call apiCall, cause error, attempts int) error {
	return apperrors.Wrap(apperrors.Network, cause, "%s %s failed", call.method, call.path).
		WithDetail("attempts", attempts)
}

// classify maps a completed exchange to a typed outcome.
func (c *Client) classify(res *apiResult) ([]byte, error) {
	switch {
	case res.status >= 200 && res.status < 300:
		return res.body, nil
	case res.status == http.StatusUnauthorized:
		return nil, apperrors.New(apperrors.AuthConfig, "invalid API key").
			WithHint("Check your API key with 'rdm config show'.").
			WithDetail("status", res.status)
	case res.status == http.StatusForbidden:
		return nil, apperrors.New(apperrors.AuthConfig, "access denied").
			WithDetail("status", res.status)
	case res.status == http.StatusNotFound:
		return nil, apperrors.New(apperrors.NotFound, "resource not found").
			WithDetail("status", res.status)
	case res.status == http.StatusUnprocessableEntity:
		var body validationErrorBody
		if err := json.Unmarshal(res.body, &body); err == nil && len(body.Errors) > 0 {
			return nil, apperrors.New(apperrors.Validation,
				"the server rejected the request: %s", strings.Join(body.Errors, "; ")).
				WithDetail("status", res.status).
				WithDetail("errors", body.Errors)
		}
		return nil, apperrors.New(apperrors.Validation, "the server rejected the request").
			WithDetail("status", res.status)
	default:
		err := apperrors.New(apperrors.API, "server returned %d %s", res.status, http.StatusText(res.status)).
			WithDetail("status", res.status)
		if snippet := bodySnippet(res.body); snippet != "" {
			err = err.WithDetail("body", snippet)
		}
		return nil, err
	}
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func decodeJSON[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, apperrors.Wrap(apperrors.API, err, "failed to parse server response")
	}
	return v, nil
}

// clampLimit applies the default and the server maximum. Limits above
// the maximum are capped with an advisory note rather than dropped.
func (c *Client) clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxPageSize {
		c.logger.Warnw("requested limit exceeds server maximum, capping",
			"requested", limit,
			"max", MaxPageSize)
		return MaxPageSize
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func pagingParams(params url.Values, limit, offset int) url.Values {
	if params == nil {
		params = url.Values{}
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	return params
}

// enrichNotFound rewrites a generic 404 into a resource-specific error.
func enrichNotFound(err error, resource, id, hint string) error {
	if apperrors.IsKind(err, apperrors.NotFound) {
		return apperrors.New(apperrors.NotFound, "%s %s not found", resource, id).WithHint(hint)
	}
	return err
}

// Ping checks connectivity and credentials by requesting the current
// user, reporting the round-trip latency.
func (c *Client) Ping(ctx context.Context) (PingResult, error) {
	start := time.Now()
	_, err := c.do(ctx, apiCall{method: http.MethodGet, path: "/users/current.json", idempotent: true})
	if err != nil {
		return PingResult{}, err
	}
	return PingResult{
		Status:    "ok",
		URL:       c.baseURL,
		ElapsedMS: time.Since(start).Milliseconds(),
	}, nil
}

// CurrentUser fetches the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (CurrentUser, error) {
	body, err := c.do(ctx, apiCall{method: http.MethodGet, path: "/users/current.json", idempotent: true})
	if err != nil {
		return CurrentUser{}, err
	}
	envelope, err := decodeJSON[currentUserEnvelope](body)
	if err != nil {
		return CurrentUser{}, err
	}
	return envelope.User, nil
}

// ListProjects fetches one window of the project collection.
func (c *Client) ListProjects(ctx context.Context, limit, offset int) ([]Project, PageWindow, error) {
	limit = c.clampLimit(limit)
	offset = clampOffset(offset)

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/projects.json",
		query:      pagingParams(nil, limit, offset),
		idempotent: true,
	})
	if err != nil {
		return nil, PageWindow{}, err
	}
	list, err := decodeJSON[projectList](body)
	if err != nil {
		return nil, PageWindow{}, err
	}
	return list.Projects, NewPageWindow(limit, offset, list.TotalCount), nil
}

// GetProject fetches one project by numeric ID or identifier.
func (c *Client) GetProject(ctx context.Context, idOrIdentifier string) (Project, error) {
	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/projects/" + url.PathEscape(idOrIdentifier) + ".json",
		idempotent: true,
	})
	if err != nil {
		return Project{}, enrichNotFound(err, "Project", idOrIdentifier,
			"Use 'rdm project list' to see available projects.")
	}
	envelope, err := decodeJSON[projectEnvelope](body)
	if err != nil {
		return Project{}, err
	}
	return envelope.Project, nil
}

// ListIssues fetches one window of the issue collection.
func (c *Client) ListIssues(ctx context.Context, filters IssueFilters, limit, offset int) ([]Issue, PageWindow, error) {
	if err := filters.Validate(); err != nil {
		return nil, PageWindow{}, err
	}
	limit = c.clampLimit(limit)
	offset = clampOffset(offset)

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/issues.json",
		query:      pagingParams(filters.ToQueryParams(), limit, offset),
		idempotent: true,
	})
	if err != nil {
		return nil, PageWindow{}, err
	}
	list, err := decodeJSON[issueList](body)
	if err != nil {
		return nil, PageWindow{}, err
	}
	return list.Issues, NewPageWindow(limit, offset, list.TotalCount), nil
}

// GetIssue fetches one issue by ID.
func (c *Client) GetIssue(ctx context.Context, id int) (Issue, error) {
	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       fmt.Sprintf("/issues/%d.json", id),
		idempotent: true,
	})
	if err != nil {
		return Issue{}, enrichNotFound(err, "Issue", strconv.Itoa(id),
			"Use 'rdm issue list' to find available issues.")
	}
	envelope, err := decodeJSON[issueEnvelope](body)
	if err != nil {
		return Issue{}, err
	}
	return envelope.Issue, nil
}

// CreateIssue creates an issue. Never retried automatically.
func (c *Client) CreateIssue(ctx context.Context, issue NewIssue) (Issue, error) {
	body, err := c.do(ctx, apiCall{
		method: http.MethodPost,
		path:   "/issues.json",
		body:   newIssueEnvelope{Issue: issue},
	})
	if err != nil {
		return Issue{}, err
	}
	envelope, err := decodeJSON[issueEnvelope](body)
	if err != nil {
		return Issue{}, err
	}
	return envelope.Issue, nil
}

// UpdateIssue applies an update to one issue. Never retried
// automatically.
func (c *Client) UpdateIssue(ctx context.Context, id int, update IssueUpdate) error {
	_, err := c.do(ctx, apiCall{
		method: http.MethodPut,
		path:   fmt.Sprintf("/issues/%d.json", id),
		body:   issueUpdateEnvelope{Issue: update},
	})
	if err != nil {
		return enrichNotFound(err, "Issue", strconv.Itoa(id),
			"Use 'rdm issue list' to find available issues.")
	}
	return nil
}

// SearchIssues runs a full-text search scoped to issues, then fetches
// the full record for each hit. Hits that cannot be read (stale index,
// permissions) are skipped.
func (c *Client) SearchIssues(ctx context.Context, query, project string, limit, offset int) ([]Issue, PageWindow, error) {
	limit = c.clampLimit(limit)
	offset = clampOffset(offset)

	params := url.Values{}
	params.Set("q", query)
	params.Set("issues", "1")

	path := "/search.json"
	if project != "" {
		path = "/projects/" + url.PathEscape(project) + "/search.json"
	}

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       path,
		query:      pagingParams(params, limit, offset),
		idempotent: true,
	})
	if err != nil {
		return nil, PageWindow{}, err
	}
	results, err := decodeJSON[searchResultList](body)
	if err != nil {
		return nil, PageWindow{}, err
	}

	issues := make([]Issue, 0, len(results.Results))
	for _, hit := range results.Results {
		if hit.Type != "issue" {
			continue
		}
		issue, err := c.GetIssue(ctx, hit.ID)
		if err != nil {
			c.logger.Debugw("skipping inaccessible search hit",
				"issue_id", hit.ID,
				"error", err)
			continue
		}
		issues = append(issues, issue)
	}
	return issues, NewPageWindow(limit, offset, results.TotalCount), nil
}

// ListActivities fetches the time-entry activity enumeration. The
// endpoint is unpaged; one call returns the complete list.
func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	ctx, span := c.tracing.TraceFetchAll(ctx, "/enumerations/time_entry_activities.json")
	defer span.End()

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/enumerations/time_entry_activities.json",
		idempotent: true,
	})
	if err != nil {
		c.tracing.SetSpanError(ctx, err)
		return nil, err
	}
	list, err := decodeJSON[activityList](body)
	if err != nil {
		return nil, err
	}
	c.tracing.AddSpanAttributes(ctx, attribute.Int("fetch.records", len(list.TimeEntryActivities)))
	return list.TimeEntryActivities, nil
}

// ListTimeEntries fetches one window of the time entry collection.
func (c *Client) ListTimeEntries(ctx context.Context, filters TimeEntryFilters, limit, offset int) ([]TimeEntry, PageWindow, error) {
	if err := filters.Validate(); err != nil {
		return nil, PageWindow{}, err
	}
	limit = c.clampLimit(limit)
	offset = clampOffset(offset)

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/time_entries.json",
		query:      pagingParams(filters.ToQueryParams(), limit, offset),
		idempotent: true,
	})
	if err != nil {
		return nil, PageWindow{}, err
	}
	list, err := decodeJSON[timeEntryList](body)
	if err != nil {
		return nil, PageWindow{}, err
	}
	return list.TimeEntries, NewPageWindow(limit, offset, list.TotalCount), nil
}

// ListAllTimeEntries drains every matching time entry. Grouped reports
// are computed over this, never over a single display page.
func (c *Client) ListAllTimeEntries(ctx context.Context, filters TimeEntryFilters, pageSize int) ([]TimeEntry, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracing.TraceFetchAll(ctx, "/time_entries.json")
	defer span.End()

	entries, err := FetchAll(ctx, pageSize, func(ctx context.Context, limit, offset int) ([]TimeEntry, PageWindow, error) {
		body, err := c.do(ctx, apiCall{
			method:     http.MethodGet,
			path:       "/time_entries.json",
			query:      pagingParams(filters.ToQueryParams(), limit, offset),
			idempotent: true,
		})
		if err != nil {
			return nil, PageWindow{}, err
		}
		list, err := decodeJSON[timeEntryList](body)
		if err != nil {
			return nil, PageWindow{}, err
		}
		return list.TimeEntries, NewPageWindow(limit, offset, list.TotalCount), nil
	})
	if err != nil {
		c.tracing.SetSpanError(ctx, err)
		return nil, err
	}

	c.tracing.AddSpanAttributes(ctx, attribute.Int("fetch.records", len(entries)))
	return entries, nil
}

// GetTimeEntry fetches one time entry by ID.
func (c *Client) GetTimeEntry(ctx context.Context, id int) (TimeEntry, error) {
	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       fmt.Sprintf("/time_entries/%d.json", id),
		idempotent: true,
	})
	if err != nil {
		return TimeEntry{}, enrichNotFound(err, "Time entry", strconv.Itoa(id),
			"Use 'rdm time list' to find available time entries.")
	}
	envelope, err := decodeJSON[timeEntryEnvelope](body)
	if err != nil {
		return TimeEntry{}, err
	}
	return envelope.TimeEntry, nil
}

// CreateTimeEntry logs time. Never retried automatically: a blind
// retry could log a duplicate entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry NewTimeEntry) (TimeEntry, error) {
	body, err := c.do(ctx, apiCall{
		method: http.MethodPost,
		path:   "/time_entries.json",
		body:   newTimeEntryEnvelope{TimeEntry: entry},
	})
	if err != nil {
		return TimeEntry{}, err
	}
	envelope, err := decodeJSON[timeEntryEnvelope](body)
	if err != nil {
		return TimeEntry{}, err
	}
	return envelope.TimeEntry, nil
}

// UpdateTimeEntry applies an update, then re-fetches the entry so the
// caller sees the fresh server state.
func (c *Client) UpdateTimeEntry(ctx context.Context, id int, update TimeEntryUpdate) (TimeEntry, error) {
	_, err := c.do(ctx, apiCall{
		method: http.MethodPut,
		path:   fmt.Sprintf("/time_entries/%d.json", id),
		body:   timeEntryUpdateEnvelope{TimeEntry: update},
	})
	if err != nil {
		return TimeEntry{}, enrichNotFound(err, "Time entry", strconv.Itoa(id),
			"Use 'rdm time list' to find available time entries.")
	}
	return c.GetTimeEntry(ctx, id)
}

// DeleteTimeEntry deletes one time entry. Never retried automatically.
func (c *Client) DeleteTimeEntry(ctx context.Context, id int) error {
	_, err := c.do(ctx, apiCall{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/time_entries/%d.json", id),
	})
	if err != nil {
		return enrichNotFound(err, "Time entry", strconv.Itoa(id),
			"Use 'rdm time list' to find available time entries.")
	}
	return nil
}

// ListUsers fetches one window of the account listing (admin only).
func (c *Client) ListUsers(ctx context.Context, filters UserFilters, limit, offset int) ([]User, PageWindow, error) {
	if err := filters.Validate(); err != nil {
		return nil, PageWindow{}, err
	}
	limit = c.clampLimit(limit)
	offset = clampOffset(offset)

	body, err := c.do(ctx, apiCall{
		method:     http.MethodGet,
		path:       "/users.json",
		query:      pagingParams(filters.ToQueryParams(), limit, offset),
		idempotent: true,
	})
	if err != nil {
		return nil, PageWindow{}, err
	}
	list, err := decodeJSON[userList](body)
	if err != nil {
		return nil, PageWindow{}, err
	}
	return list.Users, NewPageWindow(limit, offset, list.TotalCount), nil
}

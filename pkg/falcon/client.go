// Package falcon is a narrow client for the three CrowdStrike report
// execution endpoints this tool consumes. The full vendor SDK surface is
// deliberately not wrapped.
package falcon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Execution is one run of a scheduled report definition.
type Execution struct {
	ID                string `json:"id"`
	ScheduledReportID string `json:"scheduled_report_id"`
	Status            string `json:"status"`
	CreatedOn         string `json:"created_on"`
}

// Client is the vendor API surface the pipeline depends on. Implemented
// by APIClient; tests substitute fakes.
type Client interface {
	// QueryExecutions returns the IDs of all executions of the report.
	QueryExecutions(ctx context.Context, reportID string) ([]string, error)
	// GetExecutions returns the status records for the given execution IDs.
	GetExecutions(ctx context.Context, ids []string) ([]Execution, error)
	// DownloadExecution returns the raw report payload of one execution.
	DownloadExecution(ctx context.Context, id string) ([]byte, error)
}

const (
	queryPath    = "/reports/queries/report-executions/v1"
	entitiesPath = "/reports/entities/report-executions/v1"
	downloadPath = "/reports/entities/report-executions-download/v1"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type queryResponse struct {
	Resources []string   `json:"resources"`
	Errors    []apiError `json:"errors"`
}

type entitiesResponse struct {
	Resources []Execution `json:"resources"`
	Errors    []apiError  `json:"errors"`
}

// APIClient talks to the CrowdStrike API over OAuth2 client credentials.
type APIClient struct {
	baseURL string
	httpc   *http.Client
}

// NewAPIClient builds a client for the given API base URL. Token
// acquisition and refresh are handled by the underlying oauth2 transport.
func NewAPIClient(ctx context.Context, clientID, clientSecret, baseURL string) *APIClient {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimSuffix(baseURL, "/") + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   cc.Client(ctx),
	}
}

func (c *APIClient) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.httpc.Do(req)
}

func (c *APIClient) QueryExecutions(ctx context.Context, reportID string) ([]string, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf("scheduled_report_id:'%s'", reportID))

	resp, err := c.get(ctx, queryPath, q)
	if err != nil {
		return nil, fmt.Errorf("execution query failed: %w", err)
	}
	defer resp.Body.Close()

	var body queryResponse
	if err := decode(resp, &body); err != nil {
		return nil, fmt.Errorf("unable to retrieve report executions, check API key permissions: %w", err)
	}
	return body.Resources, nil
}

func (c *APIClient) GetExecutions(ctx context.Context, ids []string) ([]Execution, error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("ids", id)
	}

	resp, err := c.get(ctx, entitiesPath, q)
	if err != nil {
		return nil, fmt.Errorf("execution status fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var body entitiesResponse
	if err := decode(resp, &body); err != nil {
		return nil, fmt.Errorf("unable to retrieve execution statuses: %w", err)
	}
	return body.Resources, nil
}

// DownloadExecution fetches the report payload. A 200 response that is a
// JSON envelope rather than report bytes is an error: the vendor answers
// that way when an execution has no downloadable content.
func (c *APIClient) DownloadExecution(ctx context.Context, id string) ([]byte, error) {
	q := url.Values{}
	q.Set("ids", id)

	resp, err := c.get(ctx, downloadPath, q)
	if err != nil {
		return nil, fmt.Errorf("download of execution %s failed: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download of execution %s failed: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of execution %s failed: %s", id, statusAndErrors(resp.StatusCode, data))
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil, fmt.Errorf("download of execution %s returned a JSON envelope, not report content: %s",
			id, statusAndErrors(resp.StatusCode, data))
	}
	return data, nil
}

func (r *queryResponse) errText() string { return joinErrors(r.Errors) }

func (r *entitiesResponse) errText() string { return joinErrors(r.Errors) }

type envelope interface {
	errText() string
}

// decode enforces the non-200-is-an-error contract shared by the query
// and status endpoints and unmarshals the envelope.
func decode(resp *http.Response, into envelope) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", statusAndErrors(resp.StatusCode, data))
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("malformed API response: %w", err)
	}
	if msg := into.errText(); msg != "" {
		return fmt.Errorf("API reported errors: %s", msg)
	}
	return nil
}

func statusAndErrors(status int, body []byte) string {
	var env struct {
		Errors []apiError `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
		return fmt.Sprintf("status %d: %s", status, joinErrors(env.Errors))
	}
	return fmt.Sprintf("status %d", status)
}

func joinErrors(errs []apiError) string {
	var parts []string
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}

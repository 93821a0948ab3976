package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/program"
	"github.com/claude/liftguard/internal/progression"
)

// HTTPClient implements DataSource by calling the LiftGuard REST API. Used
// when the MCP binary runs locally over stdio but the data lives on the
// server. The server resolves the caller from its tailnet identity, so the
// userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) NextTarget(ctx context.Context, _ int, exercise string) (*advisor.TargetView, error) {
	var v advisor.TargetView
	if err := c.do(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(exercise)+"/target", nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) Warmup(ctx context.Context, _ int, exercise string, working float64) (*advisor.WarmupView, error) {
	params := url.Values{}
	if working > 0 {
		params.Set("working", formatFloat(working))
	}
	var v advisor.WarmupView
	if err := c.do(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(exercise)+"/warmup", params, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) Ladder(ctx context.Context, exercise string, weight float64, reps int) ([]progression.Target, error) {
	params := url.Values{}
	params.Set("exercise", exercise)
	params.Set("weight", formatFloat(weight))
	params.Set("reps", strconv.Itoa(reps))
	var v struct {
		Ladder []progression.Target `json:"ladder"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/rpt-ladder", params, nil, &v); err != nil {
		return nil, err
	}
	return v.Ladder, nil
}

func (c *HTTPClient) DeloadWeight(ctx context.Context, exercise string, weight float64, pct *float64) (float64, error) {
	params := url.Values{}
	params.Set("weight", formatFloat(weight))
	if pct != nil {
		params.Set("pct", formatFloat(*pct))
	}
	if exercise != "" {
		params.Set("exercise", exercise)
	}
	var v struct {
		DeloadWeight float64 `json:"deload_weight"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/deload", params, nil, &v); err != nil {
		return 0, err
	}
	return v.DeloadWeight, nil
}

func (c *HTTPClient) CheckSet(ctx context.Context, _ int, req advisor.SetRequest) (guardrail.Check, error) {
	var check guardrail.Check
	err := c.do(ctx, http.MethodPost, "/api/v1/sets/check", nil, req, &check)
	return check, err
}

func (c *HTTPClient) CheckSchedule(ctx context.Context, _ int, req advisor.ScheduleRequest) (guardrail.Check, error) {
	var check guardrail.Check
	err := c.do(ctx, http.MethodPost, "/api/v1/schedule/check", nil, req, &check)
	return check, err
}

func (c *HTTPClient) ResolveExercises(ctx context.Context, _ int, slot int) (program.Selection, error) {
	params := url.Values{}
	params.Set("slot", strconv.Itoa(slot))
	var sel program.Selection
	err := c.do(ctx, http.MethodGet, "/api/v1/program/exercises", params, nil, &sel)
	return sel, err
}

func (c *HTTPClient) Program(ctx context.Context, _ int) (*advisor.ProgramView, error) {
	var v advisor.ProgramView
	if err := c.do(ctx, http.MethodGet, "/api/v1/program", nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

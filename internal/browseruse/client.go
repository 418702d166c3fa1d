// Package browseruse implements the client for the Browser-Use cloud API,
// the remote provider that executes browser-automation tasks. The client
// submits a task once, then polls the task resource until it reaches a
// terminal status.
package browseruse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Task statuses reported by the provider. Anything outside the terminal pair
// keeps the poll loop running.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// TaskSpec is the wire form of one automation task submission.
type TaskSpec struct {
	// Task is the natural-language instruction for the agent. It must not
	// contain credentials; those travel in Secrets.
	Task string `json:"task"`

	// Secrets is the provider's separate namespace for sensitive values.
	// The agent can reference them by name but they are never echoed back
	// in task descriptions or logs.
	Secrets map[string]string `json:"secrets"`

	// AllowedDomains restricts the hosts the remote agent may navigate to.
	AllowedDomains []string `json:"allowed_domains"`

	// StructuredOutput is the JSON schema the provider enforces on output.
	StructuredOutput map[string]any `json:"structured_output_json"`

	SaveBrowserData bool `json:"save_browser_data"`
}

// RawCandidate is one record in a finished task's structured output.
type RawCandidate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ProviderError reports a failure of the automation provider: transport
// errors, non-2xx responses, or a terminal failed status.
type ProviderError struct {
	Op     string // "submit" or "poll"
	Status int    // HTTP status when applicable, 0 otherwise
	Msg    string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("browser-use %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("browser-use %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config controls client behavior.
type Config struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	// PollTimeout bounds the whole submit-and-wait cycle so a provider that
	// never terminates cannot hold a request open forever.
	PollTimeout time.Duration
}

// Client talks to the provider API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client. A nil httpClient falls back to a default with a
// per-call timeout; the poll budget is enforced separately via context.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

type submitResponse struct {
	ID string `json:"id"`
}

type taskStatus struct {
	Status string          `json:"status"`
	Output []RawCandidate  `json:"output"`
	Error  json.RawMessage `json:"error"`
}

// Run submits the task and polls until it finishes, fails, the poll budget
// runs out, or ctx is canceled. On finished it returns the output array,
// possibly empty. On failed the provider's error message is surfaced
// verbatim.
func (c *Client) Run(ctx context.Context, spec TaskSpec) ([]RawCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	taskID, err := c.submit(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.logger.Info("automation task submitted", zap.String("task_id", taskID))

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			msg := fmt.Sprintf("task %s did not finish within budget", taskID)
			if errors.Is(ctx.Err(), context.Canceled) {
				msg = fmt.Sprintf("task %s abandoned: caller canceled", taskID)
			}
			return nil, &ProviderError{Op: "poll", Msg: msg, Err: ctx.Err()}
		case <-ticker.C:
		}

		st, err := c.poll(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch st.Status {
		case StatusFinished:
			c.logger.Info("automation task finished",
				zap.String("task_id", taskID),
				zap.Int("candidates", len(st.Output)))
			return st.Output, nil
		case StatusFailed:
			return nil, &ProviderError{Op: "poll", Msg: fmt.Sprintf("task failed: %s", providerErrorText(st.Error))}
		case StatusPending, StatusRunning:
			c.logger.Debug("automation task in progress",
				zap.String("task_id", taskID),
				zap.String("status", st.Status))
		default:
			// Unknown status: the provider may add states; keep polling
			// until the budget runs out.
			c.logger.Warn("automation task reported unknown status",
				zap.String("task_id", taskID),
				zap.String("status", st.Status))
		}
	}
}

func (c *Client) submit(ctx context.Context, spec TaskSpec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal task spec: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/run-task", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ProviderError{Op: "submit", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{Op: "submit", Status: resp.StatusCode, Msg: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))}
	}

	var sub submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return "", &ProviderError{Op: "submit", Msg: "decode response", Err: err}
	}
	if sub.ID == "" {
		return "", &ProviderError{Op: "submit", Msg: "provider returned no task id"}
	}
	return sub.ID, nil
}

func (c *Client) poll(ctx context.Context, taskID string) (taskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/task/"+taskID, nil)
	if err != nil {
		return taskStatus{}, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return taskStatus{}, &ProviderError{Op: "poll", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return taskStatus{}, &ProviderError{Op: "poll", Status: resp.StatusCode, Msg: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))}
	}

	var st taskStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return taskStatus{}, &ProviderError{Op: "poll", Msg: "decode response", Err: err}
	}
	return st, nil
}

func providerErrorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "Unknown error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func readBodySnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}

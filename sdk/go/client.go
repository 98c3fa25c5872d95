package bountylinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Bountyline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Sponsor represents the API sponsor model (partial).
type Sponsor struct {
	WalletAddress string   `json:"wallet_address"`
	Name          string   `json:"name,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Website       string   `json:"website,omitempty"`
	TaskIDs       []string `json:"task_ids"`
}

// Contributor represents the API contributor model (partial).
type Contributor struct {
	Email         string           `json:"email"`
	Name          string           `json:"name,omitempty"`
	WalletAddress string           `json:"wallet_address,omitempty"`
	Bio           string           `json:"bio,omitempty"`
	Reputation    int              `json:"reputation"`
	Skills        []SkillReference `json:"skills,omitempty"`
}

// SkillReference is a catalog skill attached to a contributor.
type SkillReference struct {
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name,omitempty"`
	Level     string `json:"level,omitempty"`
}

// Task represents the API task model.
type Task struct {
	ID          string   `json:"id"`
	SponsorID   string   `json:"sponsor_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Reward      string   `json:"reward,omitempty"`
	Status      string   `json:"status"`
	Submissions []string `json:"submissions"`
}

// Submission represents the API submission model.
type Submission struct {
	ID            string  `json:"id"`
	TaskID        string  `json:"task_id"`
	WalletAddress string  `json:"wallet_address"`
	Content       string  `json:"content,omitempty"`
	Status        string  `json:"status"`
	IsAccepted    bool    `json:"is_accepted"`
	Rating        *int    `json:"rating,omitempty"`
	Feedback      *string `json:"feedback,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type authResponse struct {
	Token string `json:"token"`
}

// LoginSponsor authenticates a sponsor and stores the bearer token on the
// client for subsequent calls.
func (c *Client) LoginSponsor(ctx context.Context, wallet, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "v1/sponsors/login", map[string]any{
		"wallet_address": wallet,
		"password":       password,
	}, &resp)
	if err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

// LoginContributor authenticates a contributor and stores the bearer token.
func (c *Client) LoginContributor(ctx context.Context, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "v1/contributors/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

// CreateTask creates a task for the authenticated sponsor.
func (c *Client) CreateTask(ctx context.Context, sponsorID, title, description, reward string) (Task, error) {
	body := map[string]any{
		"sponsor_id":  sponsorID,
		"title":       title,
		"description": description,
		"reward":      reward,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v1/tasks", body, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "v1/tasks/"+url.PathEscape(taskID), nil, &resp)
	return resp, err
}

// ListTasks returns tasks, optionally filtered by sponsor and status.
func (c *Client) ListTasks(ctx context.Context, sponsorID, status string) ([]Task, error) {
	endpoint := "v1/tasks"
	q := url.Values{}
	if sponsorID != "" {
		q.Set("sponsor_id", sponsorID)
	}
	if status != "" {
		q.Set("status", status)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateSubmission submits work against an open task.
func (c *Client) CreateSubmission(ctx context.Context, taskID, wallet, content string) (Submission, error) {
	body := map[string]any{
		"wallet_address": wallet,
		"content":        content,
	}
	var resp Submission
	endpoint := fmt.Sprintf("v1/tasks/%s/submissions", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ReviewSubmission accepts or rejects a submission as the task's sponsor.
func (c *Client) ReviewSubmission(ctx context.Context, submissionID, status string, rating *int, feedback *string) (Submission, error) {
	body := map[string]any{"status": status}
	if rating != nil {
		body["rating"] = *rating
	}
	if feedback != nil {
		body["feedback"] = *feedback
	}
	var resp Submission
	endpoint := fmt.Sprintf("v1/submissions/%s/review", url.PathEscape(submissionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// GetSponsor fetches a sponsor by wallet address.
func (c *Client) GetSponsor(ctx context.Context, wallet string) (Sponsor, error) {
	var resp Sponsor
	err := c.do(ctx, http.MethodGet, "v1/sponsors/"+url.PathEscape(wallet), nil, &resp)
	return resp, err
}

// GetContributor fetches a contributor profile with resolved skill names.
func (c *Client) GetContributor(ctx context.Context, email string) (Contributor, error) {
	var resp Contributor
	err := c.do(ctx, http.MethodGet, "v1/contributors/"+url.PathEscape(email), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

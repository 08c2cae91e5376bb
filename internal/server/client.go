package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
)

// Client is a typed HTTP client for a running anvil server. The CLI
// control commands and the watch TUI go through it.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the server at addr. A bare ":8642"
// listen address becomes "http://localhost:8642".
func NewClient(addr string) *Client {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// StartJob submits a new job and returns its id.
func (c *Client) StartJob(task, language string, maxIterations int) (string, error) {
	var resp StartJobResponse
	err := c.do(http.MethodPost, "/v1/jobs", StartJobRequest{
		Task:          task,
		Language:      language,
		MaxIterations: maxIterations,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// ListJobs returns every job the server knows, newest first.
func (c *Client) ListJobs() ([]orchestrator.Status, error) {
	var jobs []orchestrator.Status
	if err := c.do(http.MethodGet, "/v1/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetStatus returns one job's full status.
func (c *Client) GetStatus(jobID string) (orchestrator.Status, error) {
	var status orchestrator.Status
	if err := c.do(http.MethodGet, "/v1/jobs/"+jobID, nil, &status); err != nil {
		return orchestrator.Status{}, err
	}
	return status, nil
}

// CancelJob requests cancellation of a live job.
func (c *Client) CancelJob(jobID string) error {
	return c.do(http.MethodDelete, "/v1/jobs/"+jobID, nil, nil)
}

// SubmitAnswer answers a pending question.
func (c *Client) SubmitAnswer(jobID, questionID, answer string) error {
	return c.do(http.MethodPost, "/v1/jobs/"+jobID+"/answers", AnswerRequest{
		QuestionID: questionID,
		Answer:     answer,
	}, nil)
}

// SubmitFeedback sends an out-of-band reviewer message to a live job.
func (c *Client) SubmitFeedback(jobID, message string) error {
	return c.do(http.MethodPost, "/v1/jobs/"+jobID+"/feedback", FeedbackRequest{
		Message: message,
	}, nil)
}

func (c *Client) do(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the server running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

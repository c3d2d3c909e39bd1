// Package taskdir looks tasks up in the practice application's task API.
package taskdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"timetrack/internal/domain"
)

// Client implements ports.TaskLookup over HTTP.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(baseURL, apiToken string, log *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// GetTask fetches GET {base}/api/tasks/{id}. A 404 is reported as (nil, nil).
func (c *Client) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, errors.New("taskdir: empty task id")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u = u.JoinPath("api", "tasks", taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("task not found in directory", slog.String("task", taskID))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("taskdir: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var raw rawTask
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if raw.ID == "" || raw.ProjectID == "" {
		return nil, fmt.Errorf("taskdir: task %s has no id or project", taskID)
	}
	return &domain.Task{ID: raw.ID, ProjectID: raw.ProjectID, TaskTypeID: raw.TaskTypeID}, nil
}

// rawTask mirrors the task directory JSON.
type rawTask struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	TaskTypeID string `json:"taskTypeId"`
}

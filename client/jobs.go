package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ListJobs returns one page of jobs matching filter.
func (c *Client) ListJobs(ctx context.Context, filter JobFilter) (*JobList, error) {
	r := request{method: http.MethodGet, path: "/api/jobs", query: filter.Values()}
	var out JobList
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob returns a single job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	escaped, err := escapeID("job", id)
	if err != nil {
		return nil, err
	}
	r := request{method: http.MethodGet, path: "/api/jobs/" + escaped}
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return nil, err
	}
	var job Job
	if err := unwrapEnvelope(raw, "job", &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}

// FilterOptions returns the distinct companies and locations.
func (c *Client) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	r := request{method: http.MethodGet, path: "/api/jobs/filter-options"}
	var out FilterOptions
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateJob posts a new job. Admin only.
func (c *Client) CreateJob(ctx context.Context, job NewJob) (*Job, error) {
	if err := validateNewJob(&job); err != nil {
		return nil, err
	}
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	r, err := jsonRequest(http.MethodPost, "/api/jobs", job, true)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		// No body: echo what was accepted. The backend assigns the ID.
		return &Job{
			Title:              job.Title,
			Company:            job.Company,
			Description:        job.Description,
			Location:           job.Location,
			Salary:             job.Salary,
			ExperienceRequired: job.ExperienceRequired,
			Type:               job.Type,
			ApplyLink:          job.ApplyLink,
		}, nil
	}
	var created Job
	if err := unwrapEnvelope(raw, "job", &created); err != nil {
		return nil, fmt.Errorf("decoding created job: %w", err)
	}
	return &created, nil
}

// DeleteJob removes a job. Admin only.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	escaped, err := escapeID("job", id)
	if err != nil {
		return err
	}
	if err := c.requireAdmin(); err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/jobs/" + escaped, protected: true}, nil)
}

func validateNewJob(job *NewJob) error {
	job.Title = strings.TrimSpace(job.Title)
	job.Company = strings.TrimSpace(job.Company)
	job.ApplyLink = strings.TrimSpace(job.ApplyLink)
	if job.Type == "" {
		job.Type = JobTypePortal
	}
	switch {
	case job.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	case job.Company == "":
		return fmt.Errorf("%w: company is required", ErrInvalidArgument)
	case job.Type != JobTypePortal && job.Type != JobTypeCompany:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidArgument, job.Type)
	case job.Type == JobTypeCompany && job.ApplyLink == "":
		return fmt.Errorf("%w: company jobs need an apply link", ErrInvalidArgument)
	}
	return nil
}

// requireAdmin fails fast when the validated user is known and is not an
// admin. An unknown user is left for the backend to judge.
func (c *Client) requireAdmin() error {
	if u := c.session.User(); u != nil && !u.IsAdmin() {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return nil
}

// Dashboard returns the admin overview. Admin only.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	var out Dashboard
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/admin/dashboard", protected: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

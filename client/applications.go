package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxResumeSize bounds resume uploads.
const MaxResumeSize = 5 << 20

var resumeExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

// Resume is a file to attach to an application.
type Resume struct {
	Name    string
	Content io.Reader
}

// ApplyRequest is the input to Apply.
type ApplyRequest struct {
	CoverLetter string
	// Resume is optional.
	Resume *Resume
	// ContinueWithoutResume submits the application without a resume when
	// the upload fails, instead of aborting.
	ContinueWithoutResume bool
}

type applicationsResponse struct {
	Applications []Application `json:"applications"`
}

// ListApplications returns the current user's applications.
func (c *Client) ListApplications(ctx context.Context) ([]Application, error) {
	var out applicationsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/applications", protected: true}, &out); err != nil {
		return nil, err
	}
	return out.Applications, nil
}

// HasApplied reports whether the current user already applied to jobID.
func (c *Client) HasApplied(ctx context.Context, jobID string) (bool, error) {
	apps, err := c.ListApplications(ctx)
	if err != nil {
		return false, err
	}
	for _, app := range apps {
		if app.Job.ID == jobID {
			return true, nil
		}
	}
	return false, nil
}

// UploadResume uploads a resume and returns its URL. Any failure wraps
// ErrUploadFailed.
func (c *Client) UploadResume(ctx context.Context, name string, content io.Reader) (string, error) {
	url, err := c.uploadResume(ctx, name, content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return url, nil
}

func (c *Client) uploadResume(ctx context.Context, name string, content io.Reader) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if !resumeExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("%w: resume must be a .pdf, .doc or .docx file", ErrInvalidArgument)
	}
	if content == nil {
		return "", fmt.Errorf("%w: resume content is required", ErrInvalidArgument)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("resume", name)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(part, io.LimitReader(content, MaxResumeSize+1))
	if err != nil {
		return "", fmt.Errorf("reading resume: %w", err)
	}
	if n > MaxResumeSize {
		return "", fmt.Errorf("%w: resume exceeds %d bytes", ErrInvalidArgument, MaxResumeSize)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	r := request{
		method:      http.MethodPost,
		path:        "/api/upload/resume",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		protected:   true,
	}
	var out struct {
		ResumeURL string `json:"resumeUrl"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.ResumeURL == "" {
		return "", errors.New("response is missing resumeUrl")
	}
	return out.ResumeURL, nil
}

type applicationPayload struct {
	JobID       string `json:"jobId"`
	CoverLetter string `json:"coverLetter"`
	ResumeURL   string `json:"resumeUrl,omitempty"`
}

// Apply submits an application for jobID. Jobs that take applications on
// the company site yield *ExternalApplyError; a second application yields
// ErrAlreadyApplied. When a resume is attached it is uploaded first; a
// failed upload aborts the application unless req.ContinueWithoutResume is
// set.
func (c *Client) Apply(ctx context.Context, jobID string, req ApplyRequest) (*Application, error) {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Type == JobTypeCompany {
		return nil, &ExternalApplyError{JobID: jobID, URL: job.ApplyLink}
	}

	applied, err := c.HasApplied(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, ErrAlreadyApplied
	}

	payload := applicationPayload{JobID: jobID, CoverLetter: strings.TrimSpace(req.CoverLetter)}
	if req.Resume != nil {
		payload.ResumeURL, err = c.UploadResume(ctx, req.Resume.Name, req.Resume.Content)
		switch {
		case err == nil:
		case req.ContinueWithoutResume && ctx.Err() == nil:
			c.logger.Warn("resume upload failed; applying without it", "job_id", jobID, "error", err)
			payload.ResumeURL = ""
		default:
			return nil, err
		}
	}

	r, err := jsonRequest(http.MethodPost, "/api/applications", payload, true)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyApplied, err)
		}
		return nil, err
	}
	app := &Application{Job: JobSummary{ID: job.ID, Title: job.Title, Company: job.Company, Location: job.Location}}
	if len(raw) > 0 {
		var decoded Application
		if err := unwrapEnvelope(raw, "application", &decoded); err == nil && decoded.ID != "" {
			if decoded.Job.Title == "" {
				decoded.Job = app.Job
			}
			app = &decoded
		}
	}
	if app.Status == "" {
		app.Status = StatusSubmitted
	}
	return app, nil
}

// ToggleBookmark flips the bookmark on jobID.
func (c *Client) ToggleBookmark(ctx context.Context, jobID string) (*BookmarkResult, error) {
	if _, err := escapeID("job", jobID); err != nil {
		return nil, err
	}
	var out BookmarkResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/bookmarks", map[string]string{"jobId": jobID}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

package client

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/jmcleod/jobboard/internal/util"
	"github.com/jmcleod/jobboard/session"
)

// User is the account returned by login, signup and profile calls.
type User = session.User

// JobType says where applications for a job are taken.
type JobType string

const (
	// JobTypePortal jobs take applications through this board.
	JobTypePortal JobType = "portal"
	// JobTypeCompany jobs redirect applicants to the company's site.
	JobTypeCompany JobType = "company"
)

// Job is a posting as served by the backend.
type Job struct {
	ID                 string    `json:"_id"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Salary             string    `json:"salary,omitempty"`
	ExperienceRequired string    `json:"experienceRequired,omitempty"`
	Type               JobType   `json:"type"`
	ApplyLink          string    `json:"applyLink,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewJob is the admin payload for creating a posting.
type NewJob struct {
	Title              string  `json:"title"`
	Company            string  `json:"company"`
	Description        string  `json:"description"`
	Location           string  `json:"location"`
	Salary             string  `json:"salary,omitempty"`
	ExperienceRequired string  `json:"experienceRequired,omitempty"`
	Type               JobType `json:"type"`
	ApplyLink          string  `json:"applyLink,omitempty"`
}

// JobList is one page of jobs.
type JobList struct {
	Jobs       []Job `json:"jobs"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

// FilterOptions lists the distinct companies and locations jobs can be
// filtered by.
type FilterOptions struct {
	Companies []string `json:"companies"`
	Locations []string `json:"locations"`
}

// JobFilter narrows a job listing. Zero fields are not sent.
type JobFilter struct {
	Search     string
	Company    string
	Location   string
	Experience string
	Type       JobType
	Salary     string
	Page       int
	Limit      int
}

// Values encodes the filter as query parameters.
func (f JobFilter) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("search", util.NormalizeText(f.Search))
	set("company", f.Company)
	set("location", f.Location)
	set("experience", f.Experience)
	set("type", string(f.Type))
	set("salary", f.Salary)
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	StatusSubmitted ApplicationStatus = "submitted"
	StatusReviewed  ApplicationStatus = "reviewed"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
)

// JobSummary is the job as embedded in an application.
type JobSummary struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

// UnmarshalJSON accepts either the populated job object or a bare job ID.
func (j *JobSummary) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*j = JobSummary{ID: id}
		return nil
	}
	type plain JobSummary
	return json.Unmarshal(data, (*plain)(j))
}

// Application is a user's application to a job.
type Application struct {
	ID          string            `json:"_id"`
	Job         JobSummary        `json:"jobId"`
	CoverLetter string            `json:"coverLetter,omitempty"`
	ResumeURL   string            `json:"resumeUrl,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// DashboardStats are the admin headline counts.
type DashboardStats struct {
	TotalJobs         int `json:"totalJobs"`
	TotalApplications int `json:"totalApplications"`
	TotalUsers        int `json:"totalUsers"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Stats              DashboardStats `json:"stats"`
	RecentApplications []Application  `json:"recentApplications,omitempty"`
}

// BookmarkResult is the backend's answer to a bookmark toggle.
type BookmarkResult struct {
	Bookmarked bool   `json:"bookmarked"`
	Message    string `json:"message,omitempty"`
}

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/client"
)

func newJobsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse job postings",
	}
	cmd.AddCommand(newJobsListCmd(opts), newJobsShowCmd(opts), newJobsFiltersCmd(opts))
	return cmd
}

func newJobsListCmd(opts *rootOptions) *cobra.Command {
	var f client.JobFilter
	var jobType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Type = client.JobType(jobType)
			return withApp(cmd.Context(), opts, func(a *app) error {
				list, err := a.client.ListJobs(cmd.Context(), f)
				if err != nil {
					return err
				}
				return render(cmd, opts, list, func(w io.Writer) error {
					rows := make([][]string, 0, len(list.Jobs))
					for _, j := range list.Jobs {
						rows = append(rows, []string{j.ID, j.Title, orDash(j.Company), orDash(j.Location), string(j.Type)})
					}
					if err := table(w, []string{"ID", "TITLE", "COMPANY", "LOCATION", "TYPE"}, rows); err != nil {
						return err
					}
					_, err := fmt.Fprintf(w, "\nPage %d of %d (%d jobs)\n", list.Page, list.TotalPages, list.Total)
					return err
				})
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Search, "search", "", "Free-text search")
	fl.StringVar(&f.Company, "company", "", "Filter by company")
	fl.StringVar(&f.Location, "location", "", "Filter by location")
	fl.StringVar(&f.Experience, "experience", "", "Filter by experience level")
	fl.StringVar(&jobType, "type", "", "Filter by job type: portal or company")
	fl.StringVar(&f.Salary, "salary", "", "Filter by salary range")
	fl.IntVar(&f.Page, "page", 0, "Page number")
	fl.IntVar(&f.Limit, "limit", 0, "Jobs per page")
	return cmd
}

func newJobsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				job, err := a.client.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, opts, job, func(w io.Writer) error {
					fmt.Fprintf(w, "%s at %s\n", job.Title, orDash(job.Company))
					fmt.Fprintf(w, "ID:         %s\n", job.ID)
					fmt.Fprintf(w, "Location:   %s\n", orDash(job.Location))
					fmt.Fprintf(w, "Salary:     %s\n", orDash(job.Salary))
					fmt.Fprintf(w, "Experience: %s\n", orDash(job.ExperienceRequired))
					if len(job.Skills) > 0 {
						fmt.Fprintf(w, "Skills:     %s\n", strings.Join(job.Skills, ", "))
					}
					if job.Type == client.JobTypeCompany {
						fmt.Fprintf(w, "Apply at:   %s\n", orDash(job.ApplyLink))
					}
					if !job.CreatedAt.IsZero() {
						fmt.Fprintf(w, "Posted:     %s\n", job.CreatedAt.Format("2006-01-02"))
					}
					_, err := fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(job.Description))
					return err
				})
			})
		},
	}
}

func newJobsFiltersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the companies and locations jobs can be filtered by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				fo, err := a.client.FilterOptions(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, opts, fo, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Companies (%s): %s\nLocations (%s): %s\n",
						strconv.Itoa(len(fo.Companies)), strings.Join(fo.Companies, ", "),
						strconv.Itoa(len(fo.Locations)), strings.Join(fo.Locations, ", "))
					return err
				})
			})
		},
	}
}

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/client"
)

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands (admin accounts only)",
	}
	cmd.AddCommand(newAdminDashboardCmd(opts), newAdminCreateJobCmd(opts), newAdminDeleteJobCmd(opts))
	return cmd
}

func newAdminDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show site statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				d, err := a.client.Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, opts, d, func(w io.Writer) error {
					fmt.Fprintf(w, "Jobs:         %d\nApplications: %d\nUsers:        %d\n",
						d.Stats.TotalJobs, d.Stats.TotalApplications, d.Stats.TotalUsers)
					if len(d.RecentApplications) == 0 {
						return nil
					}
					fmt.Fprintln(w, "\nRecent applications:")
					rows := make([][]string, 0, len(d.RecentApplications))
					for _, app := range d.RecentApplications {
						rows = append(rows, []string{app.ID, orDash(app.Job.Title), string(app.Status)})
					}
					return table(w, []string{"ID", "JOB", "STATUS"}, rows)
				})
			})
		},
	}
}

func newAdminCreateJobCmd(opts *rootOptions) *cobra.Command {
	var job client.NewJob
	var jobType string
	cmd := &cobra.Command{
		Use:   "create-job",
		Short: "Post a new job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job.Type = client.JobType(jobType)
			return withApp(cmd.Context(), opts, func(a *app) error {
				created, err := a.client.CreateJob(cmd.Context(), job)
				if err != nil {
					return err
				}
				return render(cmd, opts, created, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created job %s: %s at %s.\n", orDash(created.ID), job.Title, job.Company)
					return err
				})
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&job.Title, "title", "", "Job title")
	fl.StringVar(&job.Company, "company", "", "Company name")
	fl.StringVar(&job.Description, "description", "", "Job description")
	fl.StringVar(&job.Location, "location", "", "Location")
	fl.StringVar(&job.Salary, "salary", "", "Salary range")
	fl.StringVar(&job.ExperienceRequired, "experience", "", "Experience required")
	fl.StringVar(&jobType, "type", string(client.JobTypePortal), "portal (apply here) or company (apply on the company site)")
	fl.StringVar(&job.ApplyLink, "apply-link", "", "Company application URL for company jobs")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newAdminDeleteJobCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-job JOB_ID",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if err := a.client.DeleteJob(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s.\n", args[0])
				return nil
			})
		},
	}
}

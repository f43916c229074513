package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/client"
)

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var coverLetter, coverLetterFile, resumePath string
	var continueWithoutResume bool
	cmd := &cobra.Command{
		Use:   "apply JOB_ID",
		Short: "Apply to a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.ApplyRequest{CoverLetter: coverLetter, ContinueWithoutResume: continueWithoutResume}
			if coverLetterFile != "" {
				data, err := os.ReadFile(coverLetterFile)
				if err != nil {
					return fmt.Errorf("reading cover letter: %w", err)
				}
				req.CoverLetter = string(data)
			}
			if resumePath != "" {
				f, err := os.Open(resumePath)
				if err != nil {
					return fmt.Errorf("opening resume: %w", err)
				}
				defer f.Close()
				req.Resume = &client.Resume{Name: filepath.Base(resumePath), Content: f}
			}

			return withApp(cmd.Context(), opts, func(a *app) error {
				submitted, err := a.client.Apply(cmd.Context(), args[0], req)
				var external *client.ExternalApplyError
				if errors.As(err, &external) {
					fmt.Fprintf(cmd.ErrOrStderr(), "This job takes applications on the company website: %s\n", orDash(external.URL))
				}
				if err != nil {
					return err
				}
				return render(cmd, opts, submitted, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Application %s submitted for %s (%s).\n", orDash(submitted.ID), orDash(submitted.Job.Title), submitted.Status)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&coverLetter, "cover-letter", "", "Cover letter text")
	cmd.Flags().StringVar(&coverLetterFile, "cover-letter-file", "", "Read the cover letter from a file")
	cmd.Flags().StringVar(&resumePath, "resume", "", "Resume to upload (.pdf, .doc or .docx)")
	cmd.Flags().BoolVar(&continueWithoutResume, "continue-without-resume", false, "Submit the application even if the resume upload fails")
	cmd.MarkFlagsMutuallyExclusive("cover-letter", "cover-letter-file")
	return cmd
}

func newApplicationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "applications",
		Short: "List your applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				apps, err := a.client.ListApplications(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, opts, apps, func(w io.Writer) error {
					if len(apps) == 0 {
						_, err := fmt.Fprintln(w, "No applications yet.")
						return err
					}
					rows := make([][]string, 0, len(apps))
					for _, app := range apps {
						applied := "-"
						if !app.CreatedAt.IsZero() {
							applied = app.CreatedAt.Format("2006-01-02")
						}
						rows = append(rows, []string{app.Job.ID, orDash(app.Job.Title), orDash(app.Job.Company), string(app.Status), applied})
					}
					return table(w, []string{"JOB", "TITLE", "COMPANY", "STATUS", "APPLIED"}, rows)
				})
			})
		},
	}
}

func newBookmarkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmark JOB_ID",
		Short: "Toggle a bookmark on a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				res, err := a.client.ToggleBookmark(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, opts, res, func(w io.Writer) error {
					state := "removed"
					if res.Bookmarked {
						state = "added"
					}
					_, err := fmt.Fprintf(w, "Bookmark %s for job %s.\n", state, args[0])
					return err
				})
			})
		},
	}
}

package command

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/CSRExport/internal/app"
	"github.com/JonMunkholm/CSRExport/internal/core"
)

// JobsCommand groups job history subcommands.
func JobsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage export job history",
	}
	cmd.AddCommand(jobsListCommand(env))
	cmd.AddCommand(jobsDeleteCommand(env))
	cmd.AddCommand(jobsClearCommand(env))
	return cmd
}

func jobsListCommand(env *Env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List export jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				var jobs []core.ExportJob
				for _, j := range a.Service.Jobs() {
					if status == "" || string(j.Status) == status {
						jobs = append(jobs, j)
					}
				}

				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No export jobs.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tFORMAT\tSTATUS\tROWS\tSIZE\tCREATED")
				fmt.Fprintln(w, "--\t----\t------\t------\t----\t----\t-------")
				for _, j := range jobs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						j.ID, j.Name, j.Config.Format, j.Status,
						humanize.Comma(int64(j.RowCount)),
						humanize.Bytes(uint64(j.FileSize)),
						humanize.RelTime(j.CreatedAt, time.Now(), "ago", "from now"),
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show jobs in this status")
	return cmd
}

func jobsDeleteCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>...",
		Short: "Delete settled jobs from history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				for _, id := range args {
					if err := a.Service.DeleteJob(cmd.Context(), id); err != nil {
						return fmt.Errorf("failed to delete job %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", id)
				}
				return nil
			})
		},
	}
}

func jobsClearCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every job from history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(a *app.App) error {
				n := len(a.Service.Jobs())
				if err := a.Service.ClearHistory(cmd.Context()); err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", n)
				return nil
			})
		},
	}
}

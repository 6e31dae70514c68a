package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"content-review-orchestrator/internal/domain"
)

var (
	jobMark   string
	jobReason string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		ui.Success("schema is up to date")
		return nil
	},
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create and inspect review jobs",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create <content-type> <content-id>",
	Short: "Create a review job for a content item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		created, err := e.Creator.CreateJob(cmd.Context(), domain.ContentRef{Type: args[0], ID: args[1]}, domain.ReviewMark(jobMark))
		if err != nil {
			return err
		}
		ui.Success("created job %s (%s)", cyan(created.Job.ID), StatusColor(string(created.Job.Status)))
		return printTasks(created.Tasks)
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job with its tasks and status history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return jobShowRun(cmd, args[0])
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending job and its open tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		job, err := e.Coordinator.CancelJob(cmd.Context(), args[0], jobReason)
		if err != nil {
			return err
		}
		ui.Success("job %s is %s", cyan(job.ID), StatusColor(string(job.Status)))
		return nil
	},
}

var jobRecomputeCmd = &cobra.Command{
	Use:   "recompute <job-id>",
	Short: "Re-derive a job's status from its current tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		job, err := e.Coordinator.RecomputeJobStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ui.Success("job %s is %s", cyan(job.ID), StatusColor(string(job.Status)))
		return nil
	},
}

var jobRetriggerCmd = &cobra.Command{
	Use:   "retrigger <job-id>",
	Short: "Run automated review again for a pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		if err := e.Creator.RetriggerAutoReview(cmd.Context(), args[0]); err != nil {
			return err
		}
		return jobShowRun(cmd, args[0])
	},
}

func init() {
	jobCreateCmd.Flags().StringVar(&jobMark, "mark", string(domain.ReviewMarkNormal), "Review mark: NORMAL, PRIORITY, SENSITIVE or APPEAL")
	jobCancelCmd.Flags().StringVar(&jobReason, "reason", "", "Cancellation reason")

	jobCmd.AddCommand(jobCreateCmd, jobShowCmd, jobCancelCmd, jobRecomputeCmd, jobRetriggerCmd)
	rootCmd.AddCommand(migrateCmd, jobCmd)
}

func jobShowRun(cmd *cobra.Command, jobID string) error {
	e, err := getEngine(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	job, err := e.Coordinator.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	tasks, err := e.Coordinator.TasksForJob(ctx, jobID)
	if err != nil {
		return err
	}
	audit, err := e.Store.AuditTrail(ctx, jobID)
	if err != nil {
		return err
	}

	ui.Field("Job", cyan(job.ID))
	ui.Field("Content", job.Content.String())
	ui.Field("Status", StatusColor(string(job.Status)))
	ui.Field("Mark", string(job.Mark))
	ui.Field("Created", job.CreateTime.Format(time.RFC3339))
	fmt.Fprintln(ui.Out)

	if err := printTasks(tasks); err != nil {
		return err
	}
	if len(audit) == 0 {
		return nil
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"At", "From", "To"})
	for _, entry := range audit {
		_ = table.Append([]string{
			entry.At.Format(time.RFC3339),
			StatusColor(string(entry.Previous)),
			StatusColor(string(entry.Next)),
		})
	}
	return table.Render()
}

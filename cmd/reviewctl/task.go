package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"content-review-orchestrator/internal/domain"
)

var (
	reviewerID    string
	listJobID     string
	newReviewerID string
	taskReason    string
	verdict       string
	summary       string
	entries       []string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List review tasks by job or reviewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		var tasks []domain.ReviewTask
		switch {
		case listJobID != "":
			tasks, err = e.Coordinator.TasksForJob(cmd.Context(), listJobID)
		case reviewerID != "":
			tasks, err = e.Coordinator.TasksForReviewer(cmd.Context(), reviewerID)
		default:
			return errors.New("one of --job or --reviewer is required")
		}
		if err != nil {
			return err
		}
		return printTasks(tasks)
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <task-id>",
	Short: "Claim an unassigned pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		task, err := e.Coordinator.ClaimTask(cmd.Context(), args[0], reviewerID)
		if err != nil {
			return err
		}
		ui.Success("task %s claimed by %s", cyan(task.ID), task.ReviewerID)
		return nil
	},
}

var reassignCmd = &cobra.Command{
	Use:   "reassign <task-id>",
	Short: "Hand a task to another reviewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		task, err := e.Coordinator.ReassignTask(cmd.Context(), args[0], reviewerID, newReviewerID, taskReason)
		if err != nil {
			return err
		}
		ui.Success("task %s replaced by %s for %s", cyan(args[0]), cyan(task.ID), task.ReviewerID)
		return nil
	},
}

var returnCmd = &cobra.Command{
	Use:   "return <task-id>",
	Short: "Give a task back without a replacement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		task, err := e.Coordinator.ReturnTask(cmd.Context(), args[0], reviewerID, taskReason)
		if err != nil {
			return err
		}
		ui.Success("task %s is %s", cyan(task.ID), StatusColor(string(task.Status)))
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <task-id>",
	Short: "Submit a verdict on a task",
	Long: `Submit a verdict on a task. Entries use SEVERITY:category:message,
for example --entry "ERROR:links:blocked host spam.example".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		feedback := domain.ReviewFeedback{Verdict: domain.Verdict(strings.ToUpper(verdict)), Summary: summary}
		for _, raw := range entries {
			entry, err := parseEntry(raw)
			if err != nil {
				return err
			}
			feedback.Entries = append(feedback.Entries, entry)
		}

		task, err := e.Coordinator.SubmitFeedback(cmd.Context(), args[0], reviewerID, feedback)
		if err != nil {
			return err
		}
		job, err := e.Coordinator.GetJob(cmd.Context(), task.ReviewJobID)
		if err != nil {
			return err
		}
		ui.Success("task %s is %s; job %s is %s", cyan(task.ID), StatusColor(string(task.Status)),
			cyan(job.ID), StatusColor(string(job.Status)))
		return nil
	},
}

var canCmd = &cobra.Command{
	Use:   "can <task-id> <claim|reassign|return|submit>",
	Short: "Check whether a reviewer may act on a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := getEngine(cmd)
		if err != nil {
			return err
		}
		err = e.Coordinator.CheckAction(cmd.Context(), args[0], reviewerID, domain.TaskAction(args[1]))
		var pe *domain.PreconditionError
		switch {
		case err == nil:
			ui.Success("%s may %s task %s", reviewerID, args[1], args[0])
			return nil
		case errors.As(err, &pe):
			ui.Warning("%s may not %s task %s: %s", reviewerID, args[1], args[0], pe.Reason)
			return nil
		default:
			return err
		}
	},
}

func init() {
	tasksCmd.Flags().StringVar(&listJobID, "job", "", "List the tasks of a job")
	tasksCmd.Flags().StringVar(&reviewerID, "reviewer", "", "List the tasks of a reviewer")

	for _, c := range []*cobra.Command{claimCmd, reassignCmd, returnCmd, submitCmd, canCmd} {
		c.Flags().StringVar(&reviewerID, "reviewer", "", "Acting reviewer id")
		_ = c.MarkFlagRequired("reviewer")
	}
	reassignCmd.Flags().StringVar(&newReviewerID, "to", "", "New reviewer id")
	_ = reassignCmd.MarkFlagRequired("to")
	reassignCmd.Flags().StringVar(&taskReason, "reason", "", "Reason for the handover")
	returnCmd.Flags().StringVar(&taskReason, "reason", "", "Reason for returning")
	submitCmd.Flags().StringVar(&verdict, "verdict", "", "APPROVED, REJECTED, NEEDS_REVISION or PENDING")
	_ = submitCmd.MarkFlagRequired("verdict")
	submitCmd.Flags().StringVar(&summary, "summary", "", "Summary of the review")
	submitCmd.Flags().StringArrayVar(&entries, "entry", nil, "Feedback entry as SEVERITY:category:message (repeatable)")

	rootCmd.AddCommand(tasksCmd, claimCmd, reassignCmd, returnCmd, submitCmd, canCmd)
}

func parseEntry(raw string) (domain.FeedbackEntry, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return domain.FeedbackEntry{}, fmt.Errorf("entry %q: want SEVERITY:category:message", raw)
	}
	return domain.FeedbackEntry{
		Severity: domain.Severity(strings.ToUpper(strings.TrimSpace(parts[0]))),
		Category: strings.TrimSpace(parts[1]),
		Message:  strings.TrimSpace(parts[2]),
	}, nil
}

func printTasks(tasks []domain.ReviewTask) error {
	if len(tasks) == 0 {
		ui.Warning("no tasks")
		return nil
	}
	table := ui.Table([]string{"Task", "Job", "Reviewer", "Status", "Summary", "Updated"})
	for _, t := range tasks {
		reviewer := t.ReviewerID
		if reviewer == "" {
			reviewer = "-"
		}
		var note string
		if t.Feedback != nil {
			note = t.Feedback.Summary
		}
		_ = table.Append([]string{
			cyan(t.ID),
			t.ReviewJobID,
			reviewer,
			StatusColor(string(t.Status)),
			note,
			t.UpdateTime.Format(time.RFC3339),
		})
	}
	return table.Render()
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskpilot/internal/app"
	"github.com/nhle/taskpilot/internal/model"
)

var (
	// add/update flags
	taskDescription   string
	taskPriority      string
	taskStatus        string
	taskDeadline      string
	taskStart         string
	taskDuration      int
	taskTags          []string
	taskTitle         string
	taskClearDeadline bool

	// list flags
	listStatus   string
	listPriority string
	listSearch   string
	listDueDays  int
)

func init() {
	rootCmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd, commentCmd, startCmd, stopCmd)

	addCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	addCmd.Flags().StringVarP(&taskPriority, "priority", "p", string(model.PriorityMedium), "low, medium or high")
	addCmd.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline, e.g. \"2026-05-08 17:00\"")
	addCmd.Flags().StringVar(&taskStart, "start", "", "Planned start time (requires --duration)")
	addCmd.Flags().IntVar(&taskDuration, "duration", 0, "Planned duration in minutes (requires --start)")
	addCmd.Flags().StringSliceVarP(&taskTags, "tag", "t", nil, "Tag (repeatable)")

	updateCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	updateCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "New description")
	updateCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "low, medium or high")
	updateCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "todo, in-progress or completed")
	updateCmd.Flags().StringVar(&taskDeadline, "deadline", "", "New deadline")
	updateCmd.Flags().BoolVar(&taskClearDeadline, "clear-deadline", false, "Remove the deadline")
	updateCmd.Flags().StringSliceVarP(&taskTags, "tag", "t", nil, "Replace tags (repeatable)")

	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only tasks with this status")
	listCmd.Flags().StringVarP(&listPriority, "priority", "p", "", "Only tasks with this priority")
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Only tasks whose title or description contains this text")
	listCmd.Flags().IntVar(&listDueDays, "due-days", 0, "Only tasks due within this many days")
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task. A deadline creates a calendar event (when calendar sync is
enabled) and schedules reminders.

Examples:
  taskpilot add "Submit report" --priority high --deadline "2026-05-08 17:00"
  taskpilot add "Review PR" --start "2026-05-05 09:00" --duration 45 -t work`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its comments, time log and similar tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a task",
	Long: `Change a task. Only the given flags are applied. Moving or removing the
deadline reschedules the calendar event and reminders.

Examples:
  taskpilot update 3f2a --status completed
  taskpilot update 3f2a --deadline "2026-05-09 12:00"
  taskpilot update 3f2a --clear-deadline`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task with its calendar event and reminders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			t, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Tasks.DeleteTask(ctx, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", t.Title)
			return nil
		})
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <id> <text>",
	Short: "Add a comment to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			t, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if _, err := a.Tasks.AddComment(ctx, t.ID, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Commented on %s\n", t.Title)
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start the timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			t, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Tasks.StartTimer(ctx, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Timer running for %s\n", t.Title)
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop the timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			t, err := resolveTask(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Tasks.StopTimer(ctx, t.ID); err != nil {
				return err
			}
			t, _ = a.Tasks.GetTask(t.ID)
			total := 0
			if t.TimeTracking != nil {
				total = t.TimeTracking.TotalMinutes
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s tracked in total\n", t.Title, formatMinutes(total))
			return nil
		})
	},
}

func runAdd(cmd *cobra.Command, args []string) error {
	task := model.Task{
		Title:       strings.Join(args, " "),
		Description: taskDescription,
		Priority:    model.Priority(taskPriority),
		Tags:        taskTags,
	}

	if taskDeadline != "" {
		d, err := parseTime(taskDeadline)
		if err != nil {
			return err
		}
		task.Deadline = &d
	}
	if taskStart != "" || taskDuration != 0 {
		if taskStart == "" || taskDuration <= 0 {
			return fmt.Errorf("--start and --duration must be given together")
		}
		s, err := parseTime(taskStart)
		if err != nil {
			return err
		}
		d := taskDuration
		task.StartTime, task.Duration = &s, &d
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		added, err := a.Tasks.AddTask(ctx, task)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", shortID(added.ID), added.Title)
		if added.Deadline != nil {
			fmt.Fprintln(cmd.OutOrStdout(), helpLine(fmt.Sprintf("%d reminder(s) scheduled", len(added.ReminderIDs))))
		}
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		now := time.Now()
		list := a.Tasks.Tasks()
		switch {
		case listSearch != "":
			list = a.Tasks.Search(listSearch)
		case listDueDays > 0:
			list = a.Tasks.ByDeadlineRange(now, now.AddDate(0, 0, listDueDays))
		}
		if listStatus != "" {
			list = filterTasks(list, func(t model.Task) bool { return t.Status == model.Status(listStatus) })
		}
		if listPriority != "" {
			list = filterTasks(list, func(t model.Task) bool { return t.Priority == model.Priority(listPriority) })
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), helpLine("No tasks."))
			return nil
		}
		active := make(map[string]bool)
		for _, id := range a.Tasks.ActiveTimers() {
			active[id] = true
		}
		renderTaskTable(cmd.OutOrStdout(), list, active, now)
		return nil
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		t, err := resolveTask(a, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTaskDetail(t, time.Now()))

		if similar := a.Assistant.SimilarTaskHistory(t.ID); len(similar) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), header("Similar tasks"))
			for _, s := range similar {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", shortID(s.ID), s.Title)
			}
		}
		return nil
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		t, err := resolveTask(a, args[0])
		if err != nil {
			return err
		}

		if flags.Changed("title") {
			t.Title = taskTitle
		}
		if flags.Changed("description") {
			t.Description = taskDescription
		}
		if flags.Changed("priority") {
			t.Priority = model.Priority(taskPriority)
		}
		if flags.Changed("status") {
			t.Status = model.Status(taskStatus)
		}
		if flags.Changed("tag") {
			t.Tags = taskTags
		}
		switch {
		case taskClearDeadline:
			t.Deadline = nil
		case flags.Changed("deadline"):
			d, err := parseTime(taskDeadline)
			if err != nil {
				return err
			}
			t.Deadline = &d
		}

		if err := a.Tasks.UpdateTask(ctx, t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", t.Title)
		return nil
	})
}

// resolveTask finds a task by full id or unique id prefix.
func resolveTask(a *app.App, ref string) (model.Task, error) {
	if t, ok := a.Tasks.GetTask(ref); ok {
		return t, nil
	}
	return matchPrefix(a.Tasks.Tasks(), ref)
}

func matchPrefix(all []model.Task, prefix string) (model.Task, error) {
	var found []model.Task
	for _, t := range all {
		if prefix != "" && strings.HasPrefix(t.ID, prefix) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("task %s not found", prefix)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, fmt.Errorf("task id %s is ambiguous (%d matches)", prefix, len(found))
	}
}

func filterTasks(list []model.Task, keep func(model.Task) bool) []model.Task {
	var out []model.Task
	for _, t := range list {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 or a local "YYYY-MM-DD[ HH:MM]" and returns UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use \"2006-01-02 15:04\" or RFC 3339)", s)
}

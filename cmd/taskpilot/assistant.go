package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskpilot/internal/ai"
	"github.com/nhle/taskpilot/internal/app"
	"github.com/nhle/taskpilot/internal/model"
	"github.com/nhle/taskpilot/internal/theme"
)

var (
	recApply     int
	recDismiss   int
	decomposeAdd bool
)

func init() {
	rootCmd.AddCommand(recommendCmd, decomposeCmd, askCmd, productivityCmd)

	recommendCmd.Flags().IntVar(&recApply, "apply", 0, "Apply the recommendation with this number")
	recommendCmd.Flags().IntVar(&recDismiss, "dismiss", 0, "Dismiss the recommendation with this number")
	decomposeCmd.Flags().BoolVar(&decomposeAdd, "add", false, "Add each subtask as a new task")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show assistant recommendations and insights",
	Long: `Evaluate the task list and show recommendations, numbered in the order
they were generated.

Examples:
  taskpilot recommend
  taskpilot recommend --apply 2
  taskpilot recommend --dismiss 1`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose <id>",
	Short: "Split a task into ordered subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecompose,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant about your tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			answer := a.Gateway.AssistantResponse(ctx, strings.Join(args, " "), recentTasks(a.Tasks.Tasks()))
			fmt.Fprintln(cmd.OutOrStdout(), theme.PanelStyle.Render(ai.CleanResponse(answer)))
			if !a.Gateway.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), helpLine("Offline answer: set TASKPILOT_AI_API_KEY for AI responses."))
			}
			return nil
		})
	},
}

var productivityCmd = &cobra.Command{
	Use:   "productivity",
	Short: "Show the productivity table and today's focus slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			patterns := a.Assistant.AnalyzeProductivity()

			fmt.Fprintln(out, header("Productivity by hour (06-21)"))
			fmt.Fprint(out, "     ")
			for h := 6; h < 22; h++ {
				fmt.Fprintf(out, "%5d", h)
			}
			fmt.Fprintln(out)
			for d := time.Sunday; d <= time.Saturday; d++ {
				fmt.Fprintf(out, "%-5s", d.String()[:3])
				for h := 6; h < 22; h++ {
					score := patterns[int(d)*24+h].Score
					fmt.Fprint(out, theme.ScoreStyle(score).Render(fmt.Sprintf("%5.1f", score)))
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, header("Focus slots today"))
			renderSlots(out, a.Assistant.OptimizedSchedule(time.Now()))
			return nil
		})
	},
}

func runRecommend(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		a.RefreshRecommendations(ctx)

		recs := a.Assistant.Recommendations()
		pick := func(n int) (model.Recommendation, error) {
			if n < 1 || n > len(recs) {
				return model.Recommendation{}, fmt.Errorf("no recommendation %d (have %d)", n, len(recs))
			}
			return recs[n-1], nil
		}

		if recApply > 0 {
			r, err := pick(recApply)
			if err != nil {
				return err
			}
			if err := a.Assistant.Apply(ctx, r.ID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied: %s\n\n", r.Message)
		}
		if recDismiss > 0 {
			r, err := pick(recDismiss)
			if err != nil {
				return err
			}
			a.Assistant.Dismiss(r.ID)
			fmt.Fprintf(out, "Dismissed: %s\n\n", r.Message)
		}

		recs = a.Assistant.Recommendations()
		if len(recs) == 0 {
			fmt.Fprintln(out, helpLine("Nothing to recommend. Add some tasks first."))
			return nil
		}

		fmt.Fprintln(out, header("Recommendations"))
		for i, r := range recs {
			fmt.Fprintln(out, renderRecommendation(i+1, r))
		}

		if slots := a.Assistant.TimeSlots(); len(slots) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, header("Focus slots today"))
			renderSlots(out, slots)
		}

		if insights := a.Assistant.Insights(); insights != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, header("Insights"))
			fmt.Fprintln(out, theme.PanelStyle.Render(ai.CleanResponse(insights)))
		}
		return nil
	})
}

func runDecompose(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		t, err := resolveTask(a, args[0])
		if err != nil {
			return err
		}

		subtasks, err := a.Assistant.DecomposeTask(ctx, t.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, header("Subtasks for "+t.Title))
		for i, s := range subtasks {
			fmt.Fprintf(out, "%2d. %s\n", i+1, s)
		}

		if !decomposeAdd {
			return nil
		}
		for _, s := range subtasks {
			_, err := a.Tasks.AddTask(ctx, model.Task{
				Title:       s,
				Description: "Part of: " + t.Title,
				Priority:    t.Priority,
				Tags:        append([]string{"subtask"}, t.Tags...),
			})
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "Added %d tasks\n", len(subtasks))
		return nil
	})
}

// recentTasks orders tasks by most recent update, newest first.
func recentTasks(all []model.Task) []model.Task {
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return all
}

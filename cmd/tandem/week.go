package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tandemhq/tandem/internal/ui"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Plan and review weeks",
}

var weekShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current week and its tasks",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		ctx := cmd.Context()

		w, err := a.weeks.GetOrCreateCurrent(ctx, a.cfg.UserID)
		if err != nil {
			fatal("loading week: %v", err)
		}
		fmt.Println(ui.WeekHeader(w))

		tasks, err := a.tasks.ListForWeek(ctx, a.cfg.UserID, w.ID)
		if err != nil {
			fatal("listing tasks: %v", err)
		}
		if len(tasks) == 0 {
			fmt.Println(ui.Dim("No tasks yet."))
			return
		}
		for _, t := range tasks {
			fmt.Println(ui.TaskLine(t))
		}
	},
}

var weekListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planned weeks, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		weeks, err := a.weeks.List(cmd.Context(), a.cfg.UserID)
		if err != nil {
			fatal("listing weeks: %v", err)
		}
		if len(weeks) == 0 {
			fmt.Println(ui.Dim("No weeks yet."))
			return
		}
		for _, w := range weeks {
			fmt.Println(ui.WeekHeader(w))
		}
	},
}

var weekPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Mark the current week's planning complete",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		ctx := cmd.Context()

		w, err := a.weeks.GetOrCreateCurrent(ctx, a.cfg.UserID)
		if err != nil {
			fatal("loading week: %v", err)
		}
		if _, err := a.weeks.MarkPlanningCompleted(ctx, w.ID, a.cfg.UserID); err != nil {
			fatal("marking planning complete: %v", err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Planning complete for %s", w.ID)))
	},
}

var (
	weekReviewRating int
	weekReviewNote   string
	weekReviewWeek   string
)

var weekReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record the end-of-week review",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		ctx := cmd.Context()

		weekID := weekReviewWeek
		if weekID == "" {
			w, err := a.weeks.GetOrCreateCurrent(ctx, a.cfg.UserID)
			if err != nil {
				fatal("loading week: %v", err)
			}
			weekID = w.ID
		}

		w, err := a.weeks.UpdateReview(ctx, weekID, a.cfg.UserID, weekReviewRating, weekReviewNote)
		if err != nil {
			fatal("recording review: %v", err)
		}
		if w == nil {
			fatal("week %s not found", weekID)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Reviewed %s: %d/5", w.ID, weekReviewRating)))
	},
}

var weekClearCmd = &cobra.Command{
	Use:   "clear <week>",
	Short: "Delete all of your tasks in a week",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		n, err := a.tasks.DeleteAllForWeek(cmd.Context(), args[0], a.cfg.UserID)
		if err != nil {
			fatal("clearing week: %v", err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Deleted %d task(s) from %s", n, args[0])))
	},
}

func init() {
	weekReviewCmd.Flags().IntVar(&weekReviewRating, "rating", 0, "overall rating, 1 to 5")
	weekReviewCmd.Flags().StringVar(&weekReviewNote, "note", "", "review note")
	weekReviewCmd.Flags().StringVar(&weekReviewWeek, "week", "", "week id (default: current week)")
	weekReviewCmd.MarkFlagRequired("rating")

	weekCmd.AddCommand(weekShowCmd, weekListCmd, weekPlanCmd, weekReviewCmd, weekClearCmd)
	rootCmd.AddCommand(weekCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tandemhq/tandem/internal/repo"
	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/ui"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage multi-week goals",
}

var (
	goalAddKind     string
	goalAddTarget   int
	goalAddDuration int
	goalAddIcon     string
	goalAddWeek     string
)

var goalAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a goal",
	Long: `Create a goal. Kinds:

  habit      done --target times each week
  recurring  done once each week
  target     accumulate --target total across weeks`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		var goalType schema.GoalType
		switch goalAddKind {
		case "habit":
			goalType = schema.WeeklyHabit{TargetPerWeek: goalAddTarget}
		case "recurring":
			goalType = schema.RecurringTask{}
		case "target":
			goalType = schema.TargetAmount{TargetTotal: goalAddTarget}
		default:
			fatal("unknown kind %q (want habit, recurring or target)", goalAddKind)
		}

		in := repo.NewGoal{
			Name:        strings.Join(args, " "),
			Icon:        goalAddIcon,
			Type:        goalType,
			StartWeekID: a.weekOrCurrent(goalAddWeek),
			OwnerID:     a.cfg.UserID,
		}
		if goalAddDuration > 0 {
			in.DurationWeeks = &goalAddDuration
		}

		g, err := a.goals.Create(cmd.Context(), in)
		if err != nil {
			fatal("creating goal: %v", err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Created %s starting %s", g.ID, g.StartWeekID)))
	},
}

var goalListAll bool

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		var (
			goals []*schema.Goal
			err   error
		)
		if goalListAll {
			goals, err = a.goals.ListForOwner(cmd.Context(), a.cfg.UserID)
		} else {
			goals, err = a.goals.ListActive(cmd.Context(), a.cfg.UserID)
		}
		if err != nil {
			fatal("listing goals: %v", err)
		}

		if len(goals) == 0 {
			fmt.Println(ui.Dim("No goals."))
			return
		}
		for _, g := range goals {
			fmt.Printf("%s  %s\n", ui.GoalLine(g), ui.Dim(g.ID))
		}
	},
}

var goalTickAmount int

var goalTickCmd = &cobra.Command{
	Use:   "tick <id>",
	Short: "Record progress on a goal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		g, err := a.goals.IncrementProgress(cmd.Context(), args[0], goalTickAmount)
		if err != nil {
			fatal("recording progress: %v", err)
		}
		if g == nil {
			fatal("goal %s not found", args[0])
		}
		fmt.Println(ui.GoalLine(g))
		if g.Status == schema.GoalCompleted {
			fmt.Println(ui.Success("Goal completed!"))
		}
	},
}

var goalHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a goal's week-by-week progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		history, err := a.goals.History(cmd.Context(), args[0])
		if err != nil {
			fatal("loading history: %v", err)
		}
		if len(history) == 0 {
			fmt.Println(ui.Dim("No completed weeks yet."))
			return
		}
		for _, snap := range history {
			fmt.Printf("%s  %s\n", snap.WeekID, ui.ProgressBar(snap.ProgressValue, snap.TargetValue))
		}
	},
}

var goalRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a goal, keeping its tasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		ok, err := a.goals.Delete(cmd.Context(), args[0])
		if err != nil {
			fatal("deleting goal: %v", err)
		}
		if !ok {
			fatal("goal %s not found", args[0])
		}
		fmt.Println(ui.Success("Deleted. Linked tasks were kept."))
	},
}

func init() {
	goalAddCmd.Flags().StringVar(&goalAddKind, "kind", "habit", "habit, recurring or target")
	goalAddCmd.Flags().IntVar(&goalAddTarget, "target", 1, "weekly count or cumulative total")
	goalAddCmd.Flags().IntVar(&goalAddDuration, "duration", 0, "lifetime in weeks (0 = open-ended)")
	goalAddCmd.Flags().StringVar(&goalAddIcon, "icon", "", "display icon")
	goalAddCmd.Flags().StringVar(&goalAddWeek, "week", "", "start week (default: current week)")

	goalListCmd.Flags().BoolVar(&goalListAll, "all", false, "include completed and expired goals")
	goalTickCmd.Flags().IntVar(&goalTickAmount, "amount", 1, "progress amount to add")

	goalCmd.AddCommand(goalAddCmd, goalListCmd, goalTickCmd, goalHistoryCmd, goalRmCmd)
	rootCmd.AddCommand(goalCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tandemhq/tandem/internal/repo"
	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage weekly tasks",
}

var (
	taskAddWeek     string
	taskAddNotes    string
	taskAddRepeat   int
	taskAddGoal     string
	taskAddParent   string
	taskAddDate     string
	taskAddDeadline string
	taskAddPriority int
	taskAddLabels   []string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to a week",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		in := repo.NewTask{
			Title:         strings.Join(args, " "),
			Notes:         taskAddNotes,
			OwnerID:       a.cfg.UserID,
			CreatedBy:     a.cfg.UserID,
			WeekID:        a.weekOrCurrent(taskAddWeek),
			LinkedGoalID:  taskAddGoal,
			ParentTaskID:  taskAddParent,
			ScheduledDate: taskAddDate,
			Deadline:      taskAddDeadline,
			Priority:      taskAddPriority,
			Labels:        taskAddLabels,
		}
		if taskAddRepeat > 0 {
			in.RepeatTarget = &taskAddRepeat
		}

		task, err := a.tasks.Create(cmd.Context(), in)
		if err != nil {
			fatal("creating task: %v", err)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added %s to %s", task.ID, task.WeekID)))
	},
}

var (
	taskListWeek        string
	taskListOverdue     bool
	taskListUnscheduled bool
	taskListDate        string
	taskListGoal        string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		ctx := cmd.Context()
		userID := a.cfg.UserID

		var (
			tasks []*schema.Task
			err   error
		)
		switch {
		case taskListOverdue:
			tasks, err = a.tasks.ListOverdue(ctx, userID)
		case taskListUnscheduled:
			tasks, err = a.tasks.ListUnscheduled(ctx, userID)
		case taskListDate != "":
			tasks, err = a.tasks.ListForDate(ctx, userID, taskListDate)
		case taskListGoal != "":
			tasks, err = a.tasks.ListForGoal(ctx, userID, taskListGoal)
		default:
			tasks, err = a.tasks.ListForWeek(ctx, userID, a.weekOrCurrent(taskListWeek))
		}
		if err != nil {
			fatal("listing tasks: %v", err)
		}

		if len(tasks) == 0 {
			fmt.Println(ui.Dim("No tasks."))
			return
		}
		for _, t := range tasks {
			fmt.Printf("%s  %s\n", ui.TaskLine(t), ui.Dim(t.ID))
		}
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		setTaskStatus(a, cmd, args[0], schema.TaskCompleted)
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <pending|completed|tried|skipped|declined>",
	Short: "Set a task's status",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		setTaskStatus(a, cmd, args[0], schema.TaskStatus(strings.ToUpper(args[1])))
	},
}

func setTaskStatus(a *app, cmd *cobra.Command, id string, status schema.TaskStatus) {
	task, err := a.tasks.UpdateStatus(cmd.Context(), id, status)
	if err != nil {
		fatal("updating task: %v", err)
	}
	if task == nil {
		fatal("task %s not found", id)
	}
	fmt.Println(ui.TaskLine(task))
}

var taskTickCmd = &cobra.Command{
	Use:   "tick <id>",
	Short: "Count one completion of a repeatable task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		task, err := a.tasks.IncrementRepeatCount(cmd.Context(), args[0])
		if err != nil {
			fatal("updating task: %v", err)
		}
		if task == nil {
			fatal("task %s not found", args[0])
		}
		fmt.Println(ui.TaskLine(task))
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <week>",
	Short: "Move a task to another week",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		task, err := a.tasks.MoveToWeek(cmd.Context(), args[0], args[1])
		if err != nil {
			fatal("moving task: %v", err)
		}
		if task == nil {
			fatal("task %s not found", args[0])
		}
		fmt.Println(ui.Success(fmt.Sprintf("Moved to %s", task.WeekID)))
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		ok, err := a.tasks.Delete(cmd.Context(), args[0])
		if err != nil {
			fatal("deleting task: %v", err)
		}
		if !ok {
			fatal("task %s not found", args[0])
		}
		fmt.Println(ui.Success("Deleted."))
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskAddWeek, "week", "", "week id (default: current week)")
	taskAddCmd.Flags().StringVar(&taskAddNotes, "notes", "", "free-form notes")
	taskAddCmd.Flags().IntVar(&taskAddRepeat, "repeat", 0, "times per week for a repeatable task")
	taskAddCmd.Flags().StringVar(&taskAddGoal, "goal", "", "goal id to link")
	taskAddCmd.Flags().StringVar(&taskAddParent, "parent", "", "parent task id for a subtask")
	taskAddCmd.Flags().StringVar(&taskAddDate, "date", "", "scheduled date (YYYY-MM-DD)")
	taskAddCmd.Flags().StringVar(&taskAddDeadline, "deadline", "", "deadline date (YYYY-MM-DD)")
	taskAddCmd.Flags().IntVar(&taskAddPriority, "priority", 0, "sort priority, lower first")
	taskAddCmd.Flags().StringSliceVar(&taskAddLabels, "label", nil, "label (repeatable)")

	taskListCmd.Flags().StringVar(&taskListWeek, "week", "", "week id (default: current week)")
	taskListCmd.Flags().BoolVar(&taskListOverdue, "overdue", false, "incomplete tasks scheduled before today")
	taskListCmd.Flags().BoolVar(&taskListUnscheduled, "unscheduled", false, "tasks with no scheduled date")
	taskListCmd.Flags().StringVar(&taskListDate, "date", "", "tasks scheduled on a date (YYYY-MM-DD)")
	taskListCmd.Flags().StringVar(&taskListGoal, "goal", "", "tasks linked to a goal")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskStatusCmd,
		taskTickCmd, taskMoveCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

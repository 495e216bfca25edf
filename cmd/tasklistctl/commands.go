package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tasklist/internal/config"
	"tasklist/internal/filter"
	"tasklist/internal/model"
	"tasklist/internal/service"
	"tasklist/internal/store"
	"tasklist/internal/taskapi"
)

type cli struct {
	apiURL     string
	timeout    time.Duration
	clientOpts []taskapi.Option
	svc        *service.TaskService
}

// newRootCmd builds the command tree. opts are passed to every task service client.
func newRootCmd(cfg config.Config, opts ...taskapi.Option) *cobra.Command {
	c := &cli{clientOpts: opts}

	rootCmd := &cobra.Command{
		Use:           "tasklistctl",
		Short:         "Manage the shared task list",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadTasks(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.apiURL, "api", cfg.TasksAPIURL, "Task service base URL")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", cfg.TasksAPITimeout, "Request timeout")

	rootCmd.AddCommand(c.listCmd(), c.addCmd(), c.editCmd(), c.doneCmd(), c.rmCmd())
	return rootCmd
}

// loadTasks fetches the collection before every command.
func (c *cli) loadTasks(cmd *cobra.Command) error {
	opts := append([]taskapi.Option(nil), c.clientOpts...)
	if c.timeout > 0 {
		opts = append(opts, taskapi.WithTimeout(c.timeout))
	}
	tasks := store.New(taskapi.New(c.apiURL, opts...))
	if err := tasks.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load tasks from server: %w", err)
	}
	c.svc = service.NewTaskService(tasks)
	return nil
}

func (c *cli) listCmd() *cobra.Command {
	var status, priority, category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := buildSelection(status, priority, category)
			if err != nil {
				return err
			}
			tasks := c.svc.List(sel)
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks match your filters")
				return nil
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "All, Active or Completed")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High")
	cmd.Flags().StringVar(&category, "category", "", "Work, Personal, Shopping, Health or Other")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	var flags taskFlags
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input(strings.Join(args, " "))
			if err != nil {
				return err
			}
			task, err := c.svc.CreateTask(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", task.ID)
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var flags taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change text, category, priority or due date of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input(flags.text)
			if err != nil {
				return err
			}
			task, err := c.svc.EditTask(cmd.Context(), args[0], input)
			if errors.Is(err, service.ErrNothingToChange) {
				return err
			}
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", task.ID)
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func (c *cli) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := c.svc.ToggleTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			state := "reopened"
			if task.Completed {
				state = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, task.ID)
			return nil
		},
	}
}

func (c *cli) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := c.svc.GetTask(args[0]); !ok {
				return fmt.Errorf("task %s: %w", args[0], store.ErrTaskNotFound)
			}
			if err := c.svc.DeleteTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

type taskFlags struct {
	text     string
	category string
	priority string
	due      string
}

func (f *taskFlags) bind(cmd *cobra.Command, withText bool) {
	if withText {
		cmd.Flags().StringVar(&f.text, "text", "", "New task text")
	}
	cmd.Flags().StringVar(&f.category, "category", "", "Work, Personal, Shopping, Health or Other")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Low, Medium or High")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date as 2006-01-02 or \"2006-01-02 15:04\"")
}

func (f *taskFlags) input(text string) (service.TaskInput, error) {
	input := service.TaskInput{Text: text}
	if f.category != "" {
		category, err := model.ParseCategory(f.category)
		if err != nil {
			return input, err
		}
		input.Category = category
	}
	if f.priority != "" {
		priority, err := model.ParsePriority(f.priority)
		if err != nil {
			return input, err
		}
		input.Priority = priority
	}
	if f.due != "" {
		due, err := service.ParseDueDate(f.due, time.Local)
		if err != nil {
			return input, err
		}
		input.DueDate = &due
	}
	return input, nil
}

func buildSelection(status, priority, category string) (filter.Selection, error) {
	var sel filter.Selection
	st, err := filter.ParseStatus(status)
	if err != nil {
		return sel, err
	}
	sel.SetStatus(st)
	if priority != "" {
		p, err := model.ParsePriority(priority)
		if err != nil {
			return sel, err
		}
		sel.SelectPriority(p)
	}
	if category != "" {
		c, err := model.ParseCategory(category)
		if err != nil {
			return sel, err
		}
		sel.SelectCategory(c)
	}
	return sel, nil
}

func printTasks(out io.Writer, tasks []model.Task) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tCATEGORY\tDUE\tTEXT")
	for _, task := range tasks {
		done := "[ ]"
		if task.Completed {
			done = "[x]"
		}
		due := "-"
		if task.DueDate != nil {
			due = task.DueDate.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", task.ID, done, task.Priority, task.Category, due, task.Text)
	}
	return w.Flush()
}

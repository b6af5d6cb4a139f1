package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vision-navigator/internal/application/port/input"
	"vision-navigator/internal/di"
)

func newRunCmd(a *app) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the screen until the task is complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireVision(); err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if task == "" {
				t, err := readTask(in, out)
				if err != nil {
					return err
				}
				task = t
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := di.NewContainer(ctx, a.cfg, task, di.IO{In: in, Out: out})
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer container.Close()

			container.Logger.Info("Task started", "task", task)

			outcome, err := container.Navigator.Run(ctx, task)
			if outcome != nil {
				printOutcome(out, outcome)
			}
			if err != nil {
				container.Logger.Error("Task failed", "error", err)
				return err
			}

			container.Logger.Info("Task finished", "reason", string(outcome.Reason), "iterations", outcome.Iterations)
			if !outcome.Completed() {
				return fmt.Errorf("session stopped: %s", outcome.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", "", "task description (read from stdin when empty)")
	return cmd
}

var errEmptyTask = errors.New("task must not be empty")

func readTask(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "Enter a task for the navigator:")
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read task: %w", err)
	}
	task := strings.TrimSpace(line)
	if task == "" {
		return "", errEmptyTask
	}
	return task, nil
}

func printOutcome(out io.Writer, o *input.SessionOutcome) {
	header := color.New(color.FgGreen, color.Bold)
	if !o.Completed() {
		header = color.New(color.FgYellow, color.Bold)
	}

	fmt.Fprintln(out)
	header.Fprintf(out, "Session %s: %s after %d iteration(s)\n", o.RequestID, o.Reason, o.Iterations)
	fmt.Fprintf(out, "Final decision: %s\n", o.Final)
	if r := o.Final.Reasoning(); r != "" {
		fmt.Fprintf(out, "Reasoning: %s\n", r)
	}
	if o.Warning != "" {
		color.New(color.FgYellow).Fprintf(out, "Warning: %s\n", o.Warning)
	}
}

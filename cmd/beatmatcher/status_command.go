package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"beatmatcher/internal/queue"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue totals and recent task activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			counts, err := store.CountsByStatus(ctx)
			if err != nil {
				return fmt.Errorf("read queue counts: %w", err)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(counts))
			total := 0
			for _, status := range queue.AllStatuses() {
				count := counts[status]
				total += count
				if count == 0 {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
			if total == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			if recent <= 0 {
				return nil
			}
			tasks, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if len(tasks) > recent {
				tasks = tasks[len(tasks)-recent:]
			}
			taskRows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				detail := task.ProgressMessage
				if task.Status == queue.StatusFailed && task.ErrorMessage != "" {
					detail = task.ErrorMessage
				}
				taskRows = append(taskRows, []string{
					strconv.FormatInt(task.ID, 10),
					task.Label(),
					string(task.Status),
					task.Bucket,
					strings.TrimSpace(detail),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Track", "Status", "Bucket", "Detail"},
				taskRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "Number of recent tasks to show (0 disables)")
	return cmd
}

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/svlabel/internal/logic/task"
)

// loadTasks reads the configured street edges.
func loadTasks() (*task.Container, error) {
	if cfg.Tasks.Path == "" {
		return nil, errors.New("no tasks file configured (tasks.path)")
	}
	c := task.NewContainer()
	if _, err := c.LoadRegionFile(cfg.Tasks.RegionID, cfg.Tasks.Path); err != nil {
		return nil, err
	}
	return c, nil
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect the street edges to audit",
}

var tasksSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print task counts and distances for the configured region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadTasks()
		if err != nil {
			return err
		}
		region := cfg.Tasks.RegionID
		all, err := c.TasksInRegion(region)
		if err != nil {
			return err
		}
		done, err := c.Completed(region)
		if err != nil {
			return err
		}
		doneKm, err := c.CompletedDistance(region)
		if err != nil {
			return err
		}
		totalKm, err := c.TotalDistance(region)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Region %s\n", color.GreenString("%d", region))
		fmt.Fprintf(out, "  tasks     %d (%d completed)\n", len(all), len(done))
		fmt.Fprintf(out, "  distance  %s of %.3f km audited\n", color.CyanString("%.3f km", doneKm), totalKm)
		return nil
	},
}

var routeLimit int

var tasksRouteCmd = &cobra.Command{
	Use:   "route",
	Short: "Walk the region task by task, preferring connected street edges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadTasks()
		if err != nil {
			return err
		}
		region := cfg.Tasks.RegionID
		out := cmd.OutOrStdout()

		var current *task.Task
		for i := 0; routeLimit <= 0 || i < routeLimit; i++ {
			next, err := c.NextTask(region, current, cfg.ConnectThresholdKm())
			if errors.Is(err, task.ErrNoTasks) {
				break
			}
			if err != nil {
				return err
			}
			connected := current != nil && current.IsConnectedTo(next, cfg.ConnectThresholdKm())
			c.SetCurrentTask(next)
			if err := c.EndTask(next); err != nil {
				return err
			}

			marker := " "
			if connected {
				marker = color.GreenString("→")
			}
			start := next.FirstCoordinate()
			fmt.Fprintf(out, "%s edge %d from (%.6f, %.6f), %.3f km\n",
				marker, next.StreetEdgeID(), start.Lat(), start.Lon(), next.Length())
			current = next
		}

		doneKm, err := c.CompletedDistance(region)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d tasks, %s audited\n", len(c.PreviousTasks()), color.CyanString("%.3f km", doneKm))
		return nil
	},
}

func init() {
	tasksRouteCmd.Flags().IntVar(&routeLimit, "limit", 0, "stop after this many tasks (0: all)")

	tasksCmd.AddCommand(tasksSummaryCmd, tasksRouteCmd)
	rootCmd.AddCommand(tasksCmd)
}

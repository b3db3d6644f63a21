package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/svlabel/internal/config"
	"github.com/cjeanneret/svlabel/internal/logic/label"
	"github.com/cjeanneret/svlabel/internal/storage"
)

// openStore opens the label database, read-only when configured so.
func openStore(c *config.Config) (*storage.SQLiteDB, error) {
	if c.Storage.ReadOnly {
		return storage.OpenReadOnly(c.Storage.Path)
	}
	return storage.NewSQLiteDB(c.Storage.Path)
}

var labelsCmd = &cobra.Command{
	Use:     "labels",
	Aliases: []string{"l"},
	Short:   "Inspect stored labels",
}

var listPano string

var labelsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored labels",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		var labels []*label.Label
		if listPano != "" {
			labels, err = db.ListLabelsByPano(cmd.Context(), listPano)
		} else {
			labels, err = db.ListLabels(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(labels) == 0 {
			fmt.Fprintln(out, "No labels stored yet.")
			return nil
		}
		for _, l := range labels {
			fmt.Fprintln(out, formatLabel(l))
		}
		return nil
	},
}

var exportOutput string

var labelsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored labels as a GeoJSON FeatureCollection",
	Long: `Export stored labels as GeoJSON points at their estimated positions.

Examples:
  svlabel labels export
  svlabel labels export --output labels.geojson`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		labels, err := db.ListLabels(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}
		fc, err := label.ToFeatureCollection(labels)
		if err != nil {
			return err
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode GeoJSON: %w", err)
		}

		if exportOutput == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0600); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d labels to %s\n", len(labels), color.CyanString(exportOutput))
		return nil
	},
}

var labelsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Mark a stored label deleted",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid label id %q: %w", args[0], err)
		}
		db, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteLabel(cmd.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("label %s not found", id)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed label %s\n", color.GreenString(id.String()))
		return nil
	},
}

func init() {
	labelsListCmd.Flags().StringVar(&listPano, "pano", "", "only labels placed on this panorama")
	labelsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")

	labelsCmd.AddCommand(labelsListCmd, labelsExportCmd, labelsRemoveCmd)
	rootCmd.AddCommand(labelsCmd)
}

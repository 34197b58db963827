package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tgienger/strack/internal/reports"
)

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "what happened")
	cmd.Flags().String("location", "", "where it happened")
	cmd.Flags().String("date", "", "date, e.g. 2026-10-16")
	cmd.Flags().String("time", "", "time, e.g. 14:30")
	cmd.Flags().String("notes", "", "free-form notes")
}

// fieldsFromFlags starts from base and replaces every field whose flag was given.
func fieldsFromFlags(cmd *cobra.Command, base reports.Fields) reports.Fields {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("title", &base.Title)
	set("location", &base.Location)
	set("date", &base.Date)
	set("time", &base.Time)
	set("notes", &base.Notes)
	return base
}

// describeValidation turns a ValidationError into the flag the user has to fix.
func describeValidation(err error) error {
	var verr *reports.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("--%s is required", verr.Field)
	}
	return err
}

// --- add ---

func newAddCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a report",
		Long: `Create a report. Title and location are required.

Examples:
  strack add --title "Lost wallet" --location "Central Park"
  strack add --title "Broken lamp" --location "Main St" --date 2026-10-16 --time 21:40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}

			r, err := store.Create(fieldsFromFlags(cmd, reports.Fields{}))
			if err != nil {
				return describeValidation(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			printSuccess("Saved %q", r.Title)
			return nil
		},
	}
	addFieldFlags(cmd)
	return cmd
}

// --- edit ---

func newEditCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a report",
		Long: `Change fields of a report. Only the fields given as flags are replaced.

Example:
  strack edit id-1234 --notes "Returned to owner"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}

			id := args[0]
			current, ok := store.Get(id)
			if !ok {
				printWarning("No report with id %s", id)
				return nil
			}

			base := reports.Fields{
				Title:    current.Title,
				Location: current.Location,
				Date:     current.Date,
				Time:     current.Time,
				Notes:    current.Notes,
			}
			found, err := store.Update(id, fieldsFromFlags(cmd, base))
			if err != nil {
				return describeValidation(err)
			}
			if !found {
				printWarning("No report with id %s", id)
				return nil
			}

			printSuccess("Updated %s", id)
			return nil
		},
	}
	addFieldFlags(cmd)
	return cmd
}

// --- rm ---

func newRmCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}

			removed, err := store.Delete(args[0])
			if err != nil {
				return err
			}
			if !removed {
				printWarning("No report with id %s", args[0])
				return nil
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

// --- ls ---

func newLsCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List reports, newest first",
		Long: `List reports, newest first.

Examples:
  strack ls
  strack ls --search wallet --range week
  strack ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			rangeName, _ := cmd.Flags().GetString("range")
			asJSON, _ := cmd.Flags().GetBool("json")

			dateRange, err := reports.ParseDateRange(rangeName)
			if err != nil {
				return err
			}

			store, err := sess.openStore()
			if err != nil {
				return err
			}

			list := store.List(reports.Filter{Search: search, Range: dateRange})
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, list)
			}

			p := newPalette(out)
			for _, r := range list {
				fmt.Fprintf(out, "%s  %s  %s @ %s\n",
					p.id.Render(r.ID),
					reports.DisplayWhen(r),
					p.title.Render(r.Title),
					r.Location,
				)
			}
			printStatus("Showing", "%d of %d report(s)", len(list), store.Count())
			return nil
		},
	}
	cmd.Flags().String("search", "", "case-insensitive text to match in title, location and notes")
	cmd.Flags().String("range", string(reports.RangeAll), "date range: all, today, week or month")
	cmd.Flags().Bool("json", false, "print the matching reports as JSON")
	return cmd
}

// --- show ---

func newShowCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sess.openStore()
			if err != nil {
				return err
			}

			r, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("no report with id %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
}

// --- export ---

func newExportCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all reports as a JSON snapshot",
		Long: `Write all reports as a JSON snapshot.

Examples:
  strack export
  strack export -o backup/reports.json
  strack export -o - | jq length`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = sess.cfg.ExportFile()
			}

			store, err := sess.openStore()
			if err != nil {
				return err
			}

			data, err := store.Export()
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("creating export directory: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			printSuccess("Exported %d report(s) to %s", store.Count(), output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "destination file, - for stdout (default <export dir>/reports.json)")
	return cmd
}

// --- import ---

func newImportCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge reports from a JSON snapshot",
		Long: `Merge reports from a JSON snapshot. Imported reports are placed ahead
of the existing ones; nothing is deduplicated.

Examples:
  strack import reports.json
  cat reports.json | strack import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading import: %w", err)
			}

			store, err := sess.openStore()
			if err != nil {
				return err
			}

			before := store.Count()
			if _, err := store.Import(data); err != nil {
				return err
			}
			printSuccess("Imported %d report(s)", store.Count()-before)
			return nil
		},
	}
}

// --- clear ---

func newClearCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return fmt.Errorf("refusing to delete all reports without --confirm")
			}

			store, err := sess.openStore()
			if err != nil {
				return err
			}

			count := store.Count()
			if err := store.Clear(); err != nil {
				return err
			}
			printSuccess("Cleared %d report(s)", count)
			return nil
		},
	}
	cmd.Flags().Bool("confirm", false, "confirm deletion of all reports")
	return cmd
}

// --- version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "strack %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// --- config ---

func newConfigCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := sess.cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

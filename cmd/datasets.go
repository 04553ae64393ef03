package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/cepv-cli/internal/credstore"
	"github.com/KaramelBytes/cepv-cli/internal/dashboard"
	"github.com/KaramelBytes/cepv-cli/internal/render"
	"github.com/KaramelBytes/cepv-cli/internal/utils"
	"github.com/spf13/cobra"
)

var rowsSort []string

func parseDatasetID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dataset id: %s", s)
	}
	return id, nil
}

var rowsCmd = &cobra.Command{
	Use:   "rows <dataset-id>",
	Short: "Show the rows of an uploaded dataset",
	Long: `Show the rows of an uploaded dataset. --sort may be repeated; sorting the
same column twice in a row flips it to descending.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDatasetID(args[0])
		if err != nil {
			return err
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		s.dash.LoadDatasetRows(cmd.Context(), id)
		for _, col := range rowsSort {
			// non-numeric columns leave the row order as it is
			if !dashboard.IsSortable(col) {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: cannot sort by %q (sortable: %s)\n", col, strings.Join(dashboard.SortableColumns(), ", "))
			}
			s.dash.SortDatasetRows(id, col)
		}
		s.renderer(cmd).Dataset(id, s.dash.Dataset(id), s.dash.SortState())
		return nil
	},
}

var pdfOut string

var pdfCmd = &cobra.Command{
	Use:   "pdf [dataset-id]",
	Short: "Download the PDF report for a dataset (default: latest upload)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		var id int64
		if len(args) == 1 {
			if id, err = parseDatasetID(args[0]); err != nil {
				return err
			}
		} else {
			s.dash.RefreshHistory(cmd.Context())
			latest, ok := s.dash.LatestDatasetID()
			if !ok {
				return errors.New(render.NoHistory)
			}
			id = latest
		}
		out := pdfOut
		if out == "" {
			out = fmt.Sprintf("dataset_%d_report.pdf", id)
		}
		var buf bytes.Buffer
		n, err := s.client.DownloadPDF(cmd.Context(), id, &buf)
		if err != nil {
			return fmt.Errorf("download report: %w", err)
		}
		if err := utils.SafeWriteFile(out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved report for dataset %d to %s (%d bytes)\n", id, out, n)
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or change the color theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{credstore.ThemeLight, credstore.ThemeDark, "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), s.theme())
			return nil
		}
		var theme string
		switch args[0] {
		case "toggle":
			if cur := s.theme(); cur != s.store.Theme() {
				if err := s.store.SetTheme(cur); err != nil {
					return err
				}
			}
			if theme, err = s.store.ToggleTheme(); err != nil {
				return err
			}
		case credstore.ThemeLight, credstore.ThemeDark:
			if err := s.store.SetTheme(args[0]); err != nil {
				return err
			}
			theme = args[0]
		default:
			return fmt.Errorf("invalid theme: %s (use light, dark or toggle)", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Theme set to %s\n", theme)
		return nil
	},
}

func init() {
	rowsCmd.Flags().StringArrayVar(&rowsSort, "sort", nil, "sort by a numeric column (Flowrate, Pressure, Temperature); repeatable")
	pdfCmd.Flags().StringVarP(&pdfOut, "output", "o", "", "output path (default dataset_<id>_report.pdf)")
	rootCmd.AddCommand(rowsCmd, pdfCmd, themeCmd)
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/cepv-cli/internal/charts"
	"github.com/KaramelBytes/cepv-cli/internal/dashboard"
	"github.com/KaramelBytes/cepv-cli/internal/preflight"
	"github.com/KaramelBytes/cepv-cli/internal/render"
	"github.com/KaramelBytes/cepv-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	uploadCheck    bool
	uploadNoRender bool
	jsonOutput     bool
)

var errPreflight = errors.New("preflight check failed")

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload an equipment CSV and show the refreshed statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		r := s.renderer(cmd)

		if uploadCheck && dashboard.IsCSV(args[0]) {
			rep, err := preflight.CheckFile(args[0])
			if err != nil {
				return err
			}
			r.Preflight(rep)
			if !rep.OK() {
				return errPreflight
			}
		}

		s.dash.OnPhase = func(p dashboard.Phase) {
			s.logger.Debug("upload phase", zap.Stringer("phase", p))
			switch p {
			case dashboard.Uploading:
				fmt.Fprintln(cmd.ErrOrStderr(), "Uploading...")
			case dashboard.Refreshing:
				fmt.Fprintln(cmd.ErrOrStderr(), "Refreshing statistics...")
			}
		}
		s.dash.SelectFile(dashboard.FileSelection(args[0]))
		if err := s.dash.Upload(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s\n", s.dash.Selection().Name)
		if id, ok := s.dash.LatestDatasetID(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset ID: %d\n", id)
		}
		if uploadNoRender {
			return nil
		}
		if s.dash.ScrollToStatsRequested() {
			r.Summary(s.dash.Summary())
			s.dash.AckScrollToStats()
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show statistics for the latest upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		s.dash.RefreshSummary(cmd.Context())
		if jsonOutput {
			return printJSON(cmd, s.dash.Summary())
		}
		s.renderer(cmd).Summary(s.dash.Summary())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		s.dash.RefreshHistory(cmd.Context())
		if jsonOutput {
			return printJSON(cmd, s.dash.History())
		}
		s.renderer(cmd).History(s.dash.History())
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <file.csv>",
	Short: "Validate an equipment CSV locally without uploading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		rep, err := preflight.CheckFile(args[0])
		if err != nil {
			return err
		}
		s.renderer(cmd).Preflight(rep)
		if !rep.OK() {
			return errPreflight
		}
		return nil
	},
}

var chartsOut string

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Write PNG charts for the latest upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		s.dash.RefreshSummary(cmd.Context())
		if s.dash.Summary() == nil {
			return errors.New(render.NoSummary)
		}
		dir := chartsOut
		if dir == "" {
			dir = s.cfg.ChartsDir
		}
		paths, err := charts.WriteAll(dir, s.dash.Summary(), s.theme())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", p)
		}
		return nil
	},
}

// printJSON writes v as indented JSON. A nil summary prints null.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadCheck, "check", false, "run the local preflight check before uploading")
	uploadCmd.Flags().BoolVar(&uploadNoRender, "no-render", false, "do not print statistics after a successful upload")
	summaryCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw summary as JSON")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw history as JSON")
	chartsCmd.Flags().StringVarP(&chartsOut, "output", "o", "", "output directory (default from config charts_dir)")
	rootCmd.AddCommand(uploadCmd, summaryCmd, historyCmd, checkCmd, chartsCmd)
}

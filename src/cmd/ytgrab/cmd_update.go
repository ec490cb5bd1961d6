package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

func newUpdateCommand(s *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and apply ytgrab updates",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Check the release feed without installing",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := s.app.manager()
				if err != nil {
					return err
				}
				res, err := mgr.Check(cmd.Context())
				printCheck(cmd.OutOrStdout(), res)
				return err
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Download the newest release and hand off to its installer",
			Long: `Download the newest release and hand off to its installer.

On success ytgrab exits and the updater (portable copies) or the setup
program (installed copies) takes over. On failure ytgrab keeps its current
files and reports the reason.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := s.app.manager()
				if err != nil {
					return err
				}
				return mgr.Run(cmd.Context())
			},
		},
	)
	return cmd
}

func printCheck(w io.Writer, res models.CheckResult) {
	switch res.Outcome {
	case models.CheckUpdateAvailable:
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ Update available: %s -> %s", res.CurrentVersion, res.LatestVersion)))
		fmt.Fprintf(w, "%s %s (%s)\n", labelStyle.Render("Asset:"), res.Plan.AssetName, res.Plan.Variant)
	case models.CheckNoUpdate:
		fmt.Fprintln(w, successStyle.Render("✓ ytgrab is up to date ("+res.CurrentVersion+")"))
	case models.CheckFailed:
		fmt.Fprintln(w, errorStyle.Render("✗ Update check failed: "+res.Reason))
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCommand(s *rootState) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download media with yt-dlp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.fetcher().Fetch(cmd.Context(), args[0], outDir, s.app.dispatcher)
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	return cmd
}

func newTranscodeCommand(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "transcode <input> [output]",
		Short: "Convert a media file to H.264/AAC MP4 with ffmpeg",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			if len(args) > 1 {
				out = args[1]
			}
			written, err := s.app.transcoder().Transcode(cmd.Context(), args[0], out, s.app.dispatcher)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ "+written))
			return nil
		},
	}
}

func newToolsCommand(s *rootState) *cobra.Command {
	tools := &cobra.Command{
		Use:   "tools",
		Short: "Manage the companion tools",
	}
	tools.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Let yt-dlp update itself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.fetcher().SelfUpdate(cmd.Context(), s.app.dispatcher)
		},
	})
	return tools
}

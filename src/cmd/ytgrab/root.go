package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/version"
)

type rootState struct {
	configPath string
	stdout     io.Writer
	app        *app
}

// close flushes the app built for the command, if any
func (s *rootState) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

func newRootCommand(s *rootState) *cobra.Command {
	root := &cobra.Command{
		Use:           "ytgrab",
		Short:         "Fetch and transcode media with yt-dlp and ffmpeg",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			a, err := newApp(s.configPath, s.stdout)
			if err != nil {
				return err
			}
			s.app = a
			a.startup(cmd.Context())
			return nil
		},
	}
	root.SetOut(s.stdout)
	root.PersistentFlags().StringVar(&s.configPath, "config", "config.yaml", "Path to configuration file")

	root.AddCommand(
		newFetchCommand(s),
		newTranscodeCommand(s),
		newToolsCommand(s),
		newUpdateCommand(s),
		newServeCommand(s),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ytgrab version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ytgrab %s\n", version.Running())
		},
	}
}

package cmd

import (
	"github.com/spf13/cobra"

	"d2sync/config"
)

func newOffsetsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "offsets",
		Short: "Print the effective offset table as TOML",
		Long:  "Print the built-in offsets overlaid with the offsets file. The output is a valid offsets file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			return config.WriteOffsets(cmd.OutOrStdout(), a.offsets)
		},
	}
}

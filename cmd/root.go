// Package cmd is the d2sync command line.
package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "d2sync",
		Short:         "d2sync: live game state from a running Diablo II: Resurrected client",
		Long:          "d2sync reads the unit tables of running game clients, keeps a per-process model of players, monsters, objects, missiles and items, and logs item sightings.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (default: d2sync.toml in the working or config directory)")

	load := func() (*app, error) {
		return wireApp(configFile)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWatchCmd(load),
		newRadarCmd(load),
		newOffsetsCmd(load),
		newItemsCmd(load),
	)
	return rootCmd
}

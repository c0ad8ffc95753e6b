package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"d2sync/radar"
	"d2sync/radar/screen"
)

func newRadarCmd(load loader) *cobra.Command {
	var (
		pid    int
		width  int
		height int
	)
	c := &cobra.Command{
		Use:   "radar",
		Short: "Open a radar window showing the units around the player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			feed := radar.NewFeed(pid, width, height)
			poller := a.newPoller(a.newEngine(ctx, st, nil))
			poller.Subscribe(feed.Update)

			errc := make(chan error, 1)
			go func() { errc <- poller.Run(ctx) }()

			// ebiten owns the main goroutine until the window closes.
			if err := screen.Run(feed, "d2sync radar"); err != nil {
				return err
			}
			cancel()
			if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	c.Flags().IntVar(&pid, "pid", 0, "process to follow (default: the last one polled)")
	c.Flags().IntVar(&width, "width", screen.DefaultWidth, "window width")
	c.Flags().IntVar(&height, "height", screen.DefaultHeight, "window height")
	return c
}

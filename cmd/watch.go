package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"d2sync/engine"
	"d2sync/itemlog"
	"d2sync/log"
	"d2sync/session"
)

func newWatchCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the game clients and log area changes and item sightings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			items := a.log.WithTag("items")
			eng := a.newEngine(ctx, st, func(e itemlog.Entry) {
				items.Info("%s item %d (%s) in area %d, %s", e.Quality, e.TxtFileNo, e.Placement, e.Area, e.Difficulty)
			})
			poller := a.newPoller(eng)

			if st != nil {
				poller.Subscribe(sessionRecorder(ctx, st, a.log))
			}
			poller.Subscribe(func(s *engine.Snapshot) {
				if s.Changed {
					a.log.Info("Process %d: area %d, %s, seed %d, %d players, %d monsters",
						s.ProcessID, s.Area, s.Difficulty, s.MapSeed, len(s.Players), len(s.Monsters))
				}
			})

			a.watchSettings()
			a.log.Info("Watching for %s", a.settings.ProcessName)
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

type sessionSaver interface {
	SaveSession(ctx context.Context, sess *session.Session) error
}

// sessionRecorder saves every game session once, tracking the current
// session of each process separately.
func sessionRecorder(ctx context.Context, st sessionSaver, l *log.Logger) func(*engine.Snapshot) {
	current := make(map[int]uuid.UUID)
	return func(s *engine.Snapshot) {
		if s.Session == nil || current[s.ProcessID] == s.Session.ID {
			return
		}
		current[s.ProcessID] = s.Session.ID
		if err := st.SaveSession(ctx, s.Session); err != nil {
			l.Error("Failed to save session: %v", err)
		}
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"

	"d2sync/config"
	"d2sync/engine"
	"d2sync/entity"
	"d2sync/itemlog"
	"d2sync/log"
	"d2sync/process"
	"d2sync/store"
)

type app struct {
	v        *viper.Viper
	settings config.Settings
	offsets  config.Offsets
	log      *log.Logger
	now      func() time.Time
}

type loader func() (*app, error)

func wireApp(configFile string) (*app, error) {
	v := viper.New()
	dirs := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "d2sync"))
	}

	settings, err := config.LoadSettings(v, configFile, dirs...)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	format, err := log.ParseFormat(settings.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("log.format: %w", err)
	}
	log.Configure(os.Stderr, level, format)

	offsets, err := config.LoadOffsets(settings.OffsetsFile)
	if err != nil {
		return nil, err
	}

	return &app{
		v:        v,
		settings: settings,
		offsets:  offsets,
		log:      log.Default(),
		now:      time.Now,
	}, nil
}

// discover attaches to every running game client.
func (a *app) discover() ([]engine.Target, error) {
	pids, err := process.FindProcesses(a.settings.ProcessName)
	if errors.Is(err, process.ErrProcessNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	targets := make([]engine.Target, 0, len(pids))
	for _, pid := range pids {
		t, err := process.Attach(pid, a.settings.ModuleName)
		if err != nil {
			a.log.Debug("Skipping process %d: %v", pid, err)
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// openStore opens the item log database, or returns nil when persistence is
// disabled.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.settings.Store.Path == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, a.settings.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open item store: %w", err)
	}
	return s, nil
}

func (a *app) newEngine(ctx context.Context, st *store.Store, onLogged func(itemlog.Entry)) *engine.Engine {
	il := a.settings.ItemLog
	opts := itemlog.Options{
		CheckVendorItems:    il.CheckVendorItems,
		CheckItemOnIdentify: il.CheckItemOnIdentify,
		Filter:              itemlog.MinQuality(entity.ItemQuality(il.MinQuality)),
		Now:                 a.now,
	}

	var record func(itemlog.Entry)
	if st != nil {
		record = st.Recorder(ctx, a.log.WithTag("store"))
	}
	opts.OnLogged = func(e itemlog.Entry) {
		if record != nil {
			record(e)
		}
		if onLogged != nil {
			onLogged(e)
		}
	}

	return engine.New(engine.Options{
		Offsets:        a.offsets,
		ItemLogEnabled: il.Enabled,
		ItemLog:        opts,
		Now:            a.now,
		Logger:         a.log.WithTag("engine"),
	})
}

func (a *app) newPoller(eng *engine.Engine) *engine.Poller {
	return engine.NewPoller(eng, a.discover, engine.PollerOptions{
		Interval:              a.settings.PollInterval,
		StickToLastGameWindow: a.settings.StickToLastGameWindow,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 15 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
		Logger: a.log.WithTag("poller"),
	})
}

// watchSettings applies log level changes from the settings file while
// running. Other settings take effect on restart.
func (a *app) watchSettings() {
	if a.v.ConfigFileUsed() == "" {
		return
	}
	config.WatchSettings(a.v, a.logLevelReloader())
}

// logLevelReloader returns the reload callback. It keeps the applied level
// itself; a.settings is not written after wiring.
func (a *app) logLevelReloader() func(config.Settings, error) {
	var mu sync.Mutex
	applied := a.settings.Log.Level
	return func(s config.Settings, err error) {
		if err != nil {
			a.log.Error("Settings reload failed: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if s.Log.Level == applied {
			return
		}
		level, err := log.ParseLevel(s.Log.Level)
		if err != nil {
			a.log.Error("Settings reload failed: log.level: %v", err)
			return
		}
		a.log.SetLevel(level)
		a.log.Info("Log level set to %s", level)
		applied = s.Log.Level
	}
}

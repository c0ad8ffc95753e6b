package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	settingsName = "d2sync"
	settingsType = "toml"
	envPrefix    = "D2SYNC"
)

// Settings are the runtime knobs of the watcher.
type Settings struct {
	ProcessName           string        `mapstructure:"process_name"`
	ModuleName            string        `mapstructure:"module_name"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	StickToLastGameWindow bool          `mapstructure:"stick_to_last_game_window"`
	OffsetsFile           string        `mapstructure:"offsets_file"`

	Log     LogSettings     `mapstructure:"log"`
	ItemLog ItemLogSettings `mapstructure:"item_log"`
	Store   StoreSettings   `mapstructure:"store"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ItemLogSettings struct {
	Enabled             bool `mapstructure:"enabled"`
	CheckVendorItems    bool `mapstructure:"check_vendor_items"`
	CheckItemOnIdentify bool `mapstructure:"check_item_on_identify"`
	MinQuality          int  `mapstructure:"min_quality"`
}

type StoreSettings struct {
	// Path of the SQLite item log database; empty disables persistence.
	Path string `mapstructure:"path"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("process_name", "D2R.exe")
	v.SetDefault("module_name", "D2R.exe")
	v.SetDefault("poll_interval", 50*time.Millisecond)
	v.SetDefault("stick_to_last_game_window", false)
	v.SetDefault("offsets_file", "offsets.toml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("item_log.enabled", true)
	v.SetDefault("item_log.check_vendor_items", false)
	v.SetDefault("item_log.check_item_on_identify", false)
	v.SetDefault("item_log.min_quality", 0)
	v.SetDefault("store.path", "")
}

// LoadSettings reads d2sync.toml from dir (or the explicit file) on top of the
// defaults and D2SYNC_* environment variables.
func LoadSettings(v *viper.Viper, file string, dirs ...string) (Settings, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(settingsName)
		v.SetConfigType(settingsType)
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	return decodeSettings(v)
}

// WatchSettings re-decodes the settings whenever the config file changes.
func WatchSettings(v *viper.Viper, onChange func(Settings, error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decodeSettings(v))
	})
	v.WatchConfig()
}

func decodeSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.PollInterval <= 0 {
		return Settings{}, fmt.Errorf("poll_interval must be positive, got %s", s.PollInterval)
	}
	return s, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	FlagConfig        = "config"
	FlagServer        = "server"
	FlagHealthAddr    = "health-addr"
	FlagDB            = "db"
	FlagDownloadDir   = "download-dir"
	FlagLogLevel      = "log-level"
	FlagLogFormat     = "log-format"
	FlagCheckInterval = "check-interval"
	FlagTimeout       = "timeout"
)

// RegisterFlags defines the configuration flags on fs. Their defaults are
// only shown in help; values are taken from fs only when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to a JSON or YAML config file")
	fs.StringP(FlagServer, "a", d.ServerURL, "base URL of the filedash API")
	fs.String(FlagHealthAddr, d.HealthAddr, "gRPC health endpoint (empty disables it)")
	fs.String(FlagDB, d.DBPath, "path to the local session database")
	fs.String(FlagDownloadDir, d.DownloadDir, "directory downloads are saved to")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.LogFormat, "log format: text or json")
	fs.DurationP(FlagCheckInterval, "i", d.OnlineCheckInterval, "online status check interval")
	fs.Duration(FlagTimeout, d.RequestTimeout, "timeout for non-upload requests")
}

// applyFlags copies explicitly set flags onto cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagServer:      &cfg.ServerURL,
		FlagHealthAddr:  &cfg.HealthAddr,
		FlagDB:          &cfg.DBPath,
		FlagDownloadDir: &cfg.DownloadDir,
		FlagLogLevel:    &cfg.LogLevel,
		FlagLogFormat:   &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	durs := map[string]*time.Duration{
		FlagCheckInterval: &cfg.OnlineCheckInterval,
		FlagTimeout:       &cfg.RequestTimeout,
	}
	for name, dst := range durs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetDuration(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}
	return nil
}

// Load builds a Config from defaults, then the file named by --config,
// then explicitly set flags. Later sources win.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path, _ := fs.GetString(FlagConfig); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	if cfg.OnlineCheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %s", cfg.OnlineCheckInterval)
	}
	return cfg, nil
}

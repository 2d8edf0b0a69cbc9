package config

import (
	"github.com/dmitrijs2005/filedash/internal/filex"
	"github.com/dmitrijs2005/filedash/internal/timex"
)

// fileConfig is the on-disk shape, JSON or YAML. Durations accept "3s"
// style strings or integer nanoseconds.
type fileConfig struct {
	ServerURL           string         `json:"server_url" yaml:"server_url"`
	HealthAddr          string         `json:"health_addr" yaml:"health_addr"`
	DBPath              string         `json:"db_path" yaml:"db_path"`
	DownloadDir         string         `json:"download_dir" yaml:"download_dir"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// applyFile overlays the non-empty values of the file at path.
func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if err := filex.DecodeFile(path, &fc); err != nil {
		return err
	}

	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.HealthAddr, fc.HealthAddr)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.DownloadDir, fc.DownloadDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the filedash CLI.
type Config struct {
	ServerURL           string
	HealthAddr          string
	DBPath              string
	DownloadDir         string
	LogLevel            string
	LogFormat           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.DBPath = defaultDBPath()
	c.DownloadDir = "downloads"
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 30 * time.Second
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "filedash.db"
	}
	return filepath.Join(dir, "filedash", "filedash.db")
}

// Package config loads runtime configuration for the filedash CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with --config / -c.
//  3. Command-line flags that were set explicitly.
//
// # File schema
//
// Durations can be strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "download_dir": "~/Downloads/filedash",
//	  "online_check_interval": "5s"
//	}
package config

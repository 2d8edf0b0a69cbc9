package config

import (
	"github.com/dmitrijs2005/filedash/internal/filex"
	"github.com/dmitrijs2005/filedash/internal/flagx"
	"github.com/dmitrijs2005/filedash/internal/timex"
)

// fileConfig is the on-disk shape of the config. Durations accept "1m"
// style strings or integer nanoseconds.
type fileConfig struct {
	HTTPAddr        string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr        string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN     string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey       string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	S3RootUser      string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region        string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	MaxUploadSize   int64          `json:"max_upload_size" yaml:"max_upload_size"`
	SignedURLTTL    timex.Duration `json:"signed_url_ttl" yaml:"signed_url_ttl"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
}

// applyFile overlays the file named by -c/-config. Keys missing from the
// file keep their current value.
func applyFile(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	fc := &fileConfig{}
	if err := filex.DecodeFile(path, fc); err != nil {
		return err
	}

	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.GRPCAddr, fc.GRPCAddr)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.LogLevel, fc.LogLevel)

	if fc.AccessTokenTTL.Duration > 0 {
		cfg.AccessTokenTTL = fc.AccessTokenTTL.Duration
	}
	if fc.RefreshTokenTTL.Duration > 0 {
		cfg.RefreshTokenTTL = fc.RefreshTokenTTL.Duration
	}
	if fc.SignedURLTTL.Duration > 0 {
		cfg.SignedURLTTL = fc.SignedURLTTL.Duration
	}
	if fc.MaxUploadSize > 0 {
		cfg.MaxUploadSize = fc.MaxUploadSize
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

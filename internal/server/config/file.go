package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// FileConfig is the on-disk shape of the config file. Duration fields use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
// Empty fields leave the current value untouched.
type FileConfig struct {
	HTTPAddr           string         `json:"http_addr" toml:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr" toml:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey          string         `json:"secret_key" toml:"secret_key"`
	PublicURL          string         `json:"public_url" toml:"public_url"`
	SessionTTL         timex.Duration `json:"session_ttl" toml:"session_ttl"`
	UserCacheTTL       timex.Duration `json:"user_cache_ttl" toml:"user_cache_ttl"`
	WarmupTimeout      timex.Duration `json:"warmup_timeout" toml:"warmup_timeout"`
	LoginRatePerMinute int            `json:"login_rate_per_minute" toml:"login_rate_per_minute"`
	TrustProxy         bool           `json:"trust_proxy" toml:"trust_proxy"`

	OpenAIBaseURL             string `json:"openai_base_url" toml:"openai_base_url"`
	OpenAIAPIKey              string `json:"openai_api_key" toml:"openai_api_key"`
	ChatModel                 string `json:"chat_model" toml:"chat_model"`
	ReasoningModel            string `json:"reasoning_model" toml:"reasoning_model"`
	TitleModel                string `json:"title_model" toml:"title_model"`
	ArtifactModel             string `json:"artifact_model" toml:"artifact_model"`
	ChatModelDisplayName      string `json:"chat_model_display_name" toml:"chat_model_display_name"`
	ReasoningModelDisplayName string `json:"reasoning_model_display_name" toml:"reasoning_model_display_name"`

	S3RootUser     string `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" toml:"s3_bucket"`
	S3Region       string `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// parseFile loads the file named by -c/-config, if any. Files ending in
// .toml are decoded as TOML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.PublicURL, fc.PublicURL)
	if fc.SessionTTL.Duration > 0 {
		c.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.UserCacheTTL.Duration > 0 {
		c.UserCacheTTL = fc.UserCacheTTL.Duration
	}
	if fc.WarmupTimeout.Duration > 0 {
		c.WarmupTimeout = fc.WarmupTimeout.Duration
	}
	if fc.LoginRatePerMinute > 0 {
		c.LoginRatePerMinute = fc.LoginRatePerMinute
	}
	if fc.TrustProxy {
		c.TrustProxy = true
	}

	setString(&c.OpenAIBaseURL, fc.OpenAIBaseURL)
	setString(&c.OpenAIAPIKey, fc.OpenAIAPIKey)
	setString(&c.ChatModel, fc.ChatModel)
	setString(&c.ReasoningModel, fc.ReasoningModel)
	setString(&c.TitleModel, fc.TitleModel)
	setString(&c.ArtifactModel, fc.ArtifactModel)
	setString(&c.ChatModelDisplayName, fc.ChatModelDisplayName)
	setString(&c.ReasoningModelDisplayName, fc.ReasoningModelDisplayName)

	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package app

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/small-frappuccino/storeops/pkg/util"
)

// Settings is the process configuration, read from the environment with a
// non-overwriting fallback to $HOME/.local/bin/.env. S3 settings are optional;
// without a bucket the bot persists to a local data directory instead, which
// is how development setups run.
type Settings struct {
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"auto"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	AuditDBPath string `envconfig:"AUDIT_DB_PATH" default:"data/audit.db"`
	LogPath     string `envconfig:"LOG_PATH" default:"logs/storeops.log"`
}

// UseS3 reports whether object storage is configured.
func (s *Settings) UseS3() bool { return s.S3Bucket != "" }

// LoadSettings reads settings from the environment. Probing for the token
// also pulls in the fallback env file for every other variable; values
// already set in the environment win.
func LoadSettings() (*Settings, error) {
	if _, err := util.LoadEnvWithLocalBinFallback("DISCORD_TOKEN"); err != nil {
		return nil, err
	}

	var s Settings
	if err := envconfig.Process("storeops", &s); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &s, nil
}

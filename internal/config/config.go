package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_PREFIX          = "+"
	DEFAULT_CREDENTIALS     = "auth/toornament.json"
	DEFAULT_API_URL         = "https://api.toornament.com"
	DEFAULT_REQUEST_SPACING = 333 * time.Millisecond
	DEFAULT_PAGE_SIZE       = 50
	DEFAULT_REQUEST_TIMEOUT = 15 * time.Second
	DEFAULT_COMMAND_TIMEOUT = 2 * time.Minute
	DEFAULT_DATA_DIR        = "data"
	DEFAULT_ROLES_FILE      = "roles.json"
)

// Environment variables that take precedence over the file
const (
	ENV_DISCORD_TOKEN = "TOORNABOT_DISCORD_TOKEN"
	ENV_CREDENTIALS   = "TOORNABOT_CREDENTIALS"
	ENV_DATA_DIR      = "TOORNABOT_DATA_DIR"
	ENV_METRICS_ADDR  = "TOORNABOT_METRICS_ADDR"
)

type DiscordConfig struct {
	// Token is either the bot token or the path of a file holding it
	Token              string `toml:"token"`
	Prefix             string `toml:"prefix"`
	CommandTimeoutText string `toml:"command_timeout"`

	CommandTimeout time.Duration `toml:"-"`
}

type ToornamentConfig struct {
	Credentials        string `toml:"credentials"`
	APIURL             string `toml:"api_url"`
	TokenURL           string `toml:"token_url"`
	RequestSpacingText string `toml:"request_spacing"`
	PageSize           int    `toml:"page_size"`
	RequestTimeoutText string `toml:"request_timeout"`

	// Parsed from their text counterparts by CheckAndSetDefaults
	RequestSpacing time.Duration `toml:"-"`
	RequestTimeout time.Duration `toml:"-"`
}

type StorageConfig struct {
	DataDir   string `toml:"data_dir"`
	RolesFile string `toml:"roles_file"`
}

type MetricsConfig struct {
	// Empty disables the metrics listener
	ListenAddr string `toml:"listen_addr"`
}

type Config struct {
	Discord    DiscordConfig    `toml:"discord"`
	Toornament ToornamentConfig `toml:"toornament"`
	Storage    StorageConfig    `toml:"storage"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// LoadDotEnv reads a .env file in the working directory, if there is one
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}
}

// Load reads the config file, applies the environment overrides and
// checks the result. A missing file is not an error as long as
// the environment provides what is required
func Load(path string) (*Config, error) {

	conf := &Config{}
	tree, err := toml.LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("Config file not found, using environment and defaults")
	case err != nil:
		return nil, trace.BadParameter("could not read config file %s: %v", path, err)
	default:
		if err := tree.Unmarshal(conf); err != nil {
			return nil, trace.BadParameter("config file %s is not valid: %v", path, err)
		}
	}

	conf.applyEnv()

	if strings.HasPrefix(conf.Discord.Token, "/") {
		conf.Discord.Token, err = readSecret(conf.Discord.Token)
		if err != nil {
			return nil, trace.Wrap(err)
		}
	}

	if err := conf.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}

	log.Info().
		Str("prefix", conf.Discord.Prefix).
		Str("credentials", conf.Toornament.Credentials).
		Str("api_url", conf.Toornament.APIURL).
		Dur("request_spacing", conf.Toornament.RequestSpacing).
		Str("data_dir", conf.Storage.DataDir).
		Str("metrics", conf.Metrics.ListenAddr).
		Msg("Configuration loaded")
	return conf, nil
}

func (c *Config) applyEnv() {
	override := func(field *string, key string) {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}
	override(&c.Discord.Token, ENV_DISCORD_TOKEN)
	override(&c.Toornament.Credentials, ENV_CREDENTIALS)
	override(&c.Storage.DataDir, ENV_DATA_DIR)
	override(&c.Metrics.ListenAddr, ENV_METRICS_ADDR)
}

// CheckAndSetDefaults checks the config for logical errors and
// sets default values for the ones that are missing
func (c *Config) CheckAndSetDefaults() error {
	var err error

	if c.Discord.Token == "" {
		return trace.BadParameter("missing required value discord.token")
	}
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = DEFAULT_PREFIX
	}
	if c.Discord.CommandTimeout, err = parseDuration("discord.command_timeout", c.Discord.CommandTimeoutText, DEFAULT_COMMAND_TIMEOUT); err != nil {
		return trace.Wrap(err)
	}

	if c.Toornament.Credentials == "" {
		c.Toornament.Credentials = DEFAULT_CREDENTIALS
	}
	if c.Toornament.APIURL == "" {
		c.Toornament.APIURL = DEFAULT_API_URL
	}
	if c.Toornament.TokenURL == "" {
		c.Toornament.TokenURL = strings.TrimSuffix(c.Toornament.APIURL, "/") + "/oauth/v2/token"
	}
	if c.Toornament.PageSize == 0 {
		c.Toornament.PageSize = DEFAULT_PAGE_SIZE
	}
	if c.Toornament.PageSize < 0 {
		return trace.BadParameter("toornament.page_size must be positive, got %d", c.Toornament.PageSize)
	}
	if c.Toornament.RequestSpacing, err = parseDuration("toornament.request_spacing", c.Toornament.RequestSpacingText, DEFAULT_REQUEST_SPACING); err != nil {
		return trace.Wrap(err)
	}
	if c.Toornament.RequestTimeout, err = parseDuration("toornament.request_timeout", c.Toornament.RequestTimeoutText, DEFAULT_REQUEST_TIMEOUT); err != nil {
		return trace.Wrap(err)
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DEFAULT_DATA_DIR
	}
	if c.Storage.RolesFile == "" {
		c.Storage.RolesFile = DEFAULT_ROLES_FILE
	}
	return nil
}

func parseDuration(name string, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, trace.BadParameter("%s is not a duration: %q", name, value)
	}
	if duration < 0 {
		return 0, trace.BadParameter("%s must not be negative, got %s", name, value)
	}
	return duration, nil
}

// readSecret reads a secret kept in a file, without the surrounding whitespace
func readSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", trace.ConvertSystemError(err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", trace.BadParameter("file %s is empty", path)
	}
	return secret, nil
}

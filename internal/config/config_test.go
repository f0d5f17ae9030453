package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileWithDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[discord]
token = "discord-token"
`)
	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "discord-token", conf.Discord.Token)
	assert.Equal(t, "+", conf.Discord.Prefix)
	assert.Equal(t, DEFAULT_COMMAND_TIMEOUT, conf.Discord.CommandTimeout)
	assert.Equal(t, "auth/toornament.json", conf.Toornament.Credentials)
	assert.Equal(t, "https://api.toornament.com", conf.Toornament.APIURL)
	assert.Equal(t, "https://api.toornament.com/oauth/v2/token", conf.Toornament.TokenURL)
	assert.Equal(t, 333*time.Millisecond, conf.Toornament.RequestSpacing)
	assert.Equal(t, 50, conf.Toornament.PageSize)
	assert.Equal(t, 15*time.Second, conf.Toornament.RequestTimeout)
	assert.Equal(t, "data", conf.Storage.DataDir)
	assert.Equal(t, "roles.json", conf.Storage.RolesFile)
	assert.Empty(t, conf.Metrics.ListenAddr)
}

func TestLoadFullFile(t *testing.T) {
	dir := t.TempDir()
	tokenPath := writeFile(t, dir, "discord.token", "  secret-token \n")
	path := writeFile(t, dir, "config.toml", `
[discord]
token = "`+tokenPath+`"
prefix = "!"
command_timeout = "30s"

[toornament]
credentials = "/etc/toornabot/toornament.json"
api_url = "http://localhost:8080"
request_spacing = "1s"
page_size = 20
request_timeout = "5s"

[storage]
data_dir = "/var/lib/toornabot"
roles_file = "permissions.json"

[metrics]
listen_addr = ":9090"
`)
	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", conf.Discord.Token)
	assert.Equal(t, "!", conf.Discord.Prefix)
	assert.Equal(t, 30*time.Second, conf.Discord.CommandTimeout)
	assert.Equal(t, "http://localhost:8080/oauth/v2/token", conf.Toornament.TokenURL)
	assert.Equal(t, time.Second, conf.Toornament.RequestSpacing)
	assert.Equal(t, 20, conf.Toornament.PageSize)
	assert.Equal(t, 5*time.Second, conf.Toornament.RequestTimeout)
	assert.Equal(t, "/var/lib/toornabot", conf.Storage.DataDir)
	assert.Equal(t, "permissions.json", conf.Storage.RolesFile)
	assert.Equal(t, ":9090", conf.Metrics.ListenAddr)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[discord]
token = "from-file"

[storage]
data_dir = "from-file"
`)
	t.Setenv(ENV_DISCORD_TOKEN, "from-env")
	t.Setenv(ENV_DATA_DIR, "/tmp/data")
	t.Setenv(ENV_CREDENTIALS, "/tmp/credentials.json")
	t.Setenv(ENV_METRICS_ADDR, "127.0.0.1:9100")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.Discord.Token)
	assert.Equal(t, "/tmp/data", conf.Storage.DataDir)
	assert.Equal(t, "/tmp/credentials.json", conf.Toornament.Credentials)
	assert.Equal(t, "127.0.0.1:9100", conf.Metrics.ListenAddr)
}

func TestMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv(ENV_DISCORD_TOKEN, "from-env")
	conf, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.Discord.Token)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ENV_DISCORD_TOKEN, "")

	_, err := Load(writeFile(t, dir, "empty.toml", ""))
	require.True(t, trace.IsBadParameter(err), "missing token: %v", err)

	_, err = Load(writeFile(t, dir, "spacing.toml", "[discord]\ntoken = \"t\"\n[toornament]\nrequest_spacing = \"often\"\n"))
	require.True(t, trace.IsBadParameter(err), "bad duration: %v", err)

	_, err = Load(writeFile(t, dir, "broken.toml", "[discord\n"))
	require.True(t, trace.IsBadParameter(err), "broken file: %v", err)

	_, err = Load(writeFile(t, dir, "tokenfile.toml", "[discord]\ntoken = \""+filepath.Join(dir, "nope")+"\"\n"))
	require.Error(t, err)
}

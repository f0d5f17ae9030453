package main

import (
	"context"
	"path/filepath"

	"toornabot/internal/bot"
	"toornabot/internal/common"
	"toornabot/internal/config"
	"toornabot/internal/logger"
	"toornabot/internal/telemetry"
	"toornabot/internal/toornament"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type CLI struct {
	Config   string `help:"Path to the TOML configuration file" default:"config.toml" env:"TOORNABOT_CONFIG"`
	LogLevel string `help:"Minimum level of the logs" default:"info" enum:"trace,debug,info,warn,error" env:"TOORNABOT_LOG_LEVEL"`
	Pretty   bool   `help:"Human readable logs instead of JSON"`
}

func main() {
	// Variables in .env are visible to the flags below
	config.LoadDotEnv()

	var cli CLI
	ctx := kong.Parse(
		&cli,
		kong.Name("toornabot"),
		kong.Description("Posts toornament standings and fixtures to discord"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(logger.Setup(cli.LogLevel, cli.Pretty))

	fx.New(
		fx.WithLogger(func() fxevent.Logger { return logger.FxLogger{} }),
		fx.Supply(cli),
		fx.Provide(
			loadConfig,
			telemetry.NewMetrics,
			newProxy,
			newCredentials,
			newToornament,
			newDatabase,
			bot.NewDatabaseBot,
			newPermissions,
			newBot,
		),
		fx.Invoke(run),
	).Run()
}

func loadConfig(cli CLI) (*config.Config, error) {
	return config.Load(cli.Config)
}

func newProxy(conf *config.Config, metrics *telemetry.Metrics) *common.Proxy {
	// One request every spacing, token requests included
	rateLimiter := common.NewRateLimiter(clockwork.NewRealClock(), common.Restriction{Requests: 1, Duration: conf.Toornament.RequestSpacing})
	return common.NewProxy(conf.Toornament.APIURL, nil, conf.Toornament.RequestTimeout, rateLimiter, metrics)
}

func newCredentials(conf *config.Config) (*toornament.CredentialStore, error) {
	path := conf.Toornament.Credentials
	database := common.NewDatabase(filepath.Dir(path))
	return toornament.LoadCredentials(database, filepath.Base(path), clockwork.NewRealClock())
}

func newToornament(proxy *common.Proxy, credentials *toornament.CredentialStore, conf *config.Config, metrics *telemetry.Metrics) *toornament.Toornament {
	return toornament.NewToornament(proxy, credentials, toornament.Config{
		TokenURL: conf.Toornament.TokenURL,
		PageSize: conf.Toornament.PageSize,
		Observer: metrics,
	})
}

func newDatabase(conf *config.Config) *common.Database {
	return common.NewDatabase(conf.Storage.DataDir)
}

func newPermissions(database *common.Database, conf *config.Config) (*bot.Permissions, error) {
	return bot.NewPermissions(database, conf.Storage.RolesFile)
}

func newBot(conf *config.Config, registry *bot.DatabaseBot, permissions *bot.Permissions, platform *toornament.Toornament, metrics *telemetry.Metrics) *bot.Bot {
	return bot.NewBot(bot.Config{
		Token:          conf.Discord.Token,
		Prefix:         conf.Discord.Prefix,
		CommandTimeout: conf.Discord.CommandTimeout,
		Observer:       metrics,
	}, registry, permissions, platform)
}

func run(lc fx.Lifecycle, discordBot *bot.Bot, conf *config.Config, metrics *telemetry.Metrics) {

	var server *telemetry.Server
	if conf.Metrics.ListenAddr != "" {
		server = telemetry.NewServer(conf.Metrics.ListenAddr, metrics)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if server != nil {
				server.Start()
			}
			return discordBot.Start()
		},
		OnStop: func(ctx context.Context) error {
			if err := discordBot.Stop(); err != nil {
				log.Warn().Err(err).Msg("Discord session did not close cleanly")
			}
			if server != nil {
				return server.Stop(ctx)
			}
			return nil
		},
	})
}

package logger

import (
	"os"
	"time"

	"github.com/gravitational/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx/fxevent"
)

// Setup configures the global logger. Pretty output is meant for terminals,
// otherwise one JSON object is written per line
func Setup(level string, pretty bool) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return trace.BadParameter("log level %q is not valid", level)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	// So that contexts without a logger keep logging to the global one
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// FxLogger reports the events of the application container
// through the global logger
type FxLogger struct{}

func (FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.Provided:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("constructor", e.ConstructorName).Msg("Could not provide dependency")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("function", e.FunctionName).Msg("Invoke failed")
		}
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("Start hook failed")
		} else {
			log.Debug().Str("callee", e.FunctionName).Dur("runtime", e.Runtime).Msg("Start hook executed")
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("Stop hook failed")
		}
	case *fxevent.RolledBack:
		log.Error().Err(e.Err).Msg("Start failed, rolling back")
	case *fxevent.Started:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Could not start")
		} else {
			log.Info().Msg("Started")
		}
	case *fxevent.Stopped:
		if e.Err != nil {
			log.Error().Err(e.Err).Msg("Could not stop cleanly")
		}
	}
}

package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New derives verbosity from the environment: debug everywhere except
// production.
func New(environment string) zerolog.Logger {
	level := "debug"
	if environment == "production" {
		level = "info"
	}
	return NewWithLevel(environment, level)
}

func NewWithLevel(environment, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Logger()

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var zlog = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process logger.
func Init(env, service string) {
	var w io.Writer

	if env == "development" || env == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	} else {
		w = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zlog = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Get returns the process logger.
func Get() *zerolog.Logger {
	return &zlog
}

// WithRequest returns a logger carrying request scoped fields.
func WithRequest(requestID string, userID int) zerolog.Logger {
	ctx := zlog.With().Str("request_id", requestID)
	if userID != 0 {
		ctx = ctx.Int("user_id", userID)
	}
	return ctx.Logger()
}

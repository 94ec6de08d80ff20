package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the logger for a component. Console output is used on a
// terminal, plain JSON otherwise.
func New(component string) zerolog.Logger {
	var logger zerolog.Logger

	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		out := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.With().
		Timestamp().
		Str("component", component).
		Logger()
}

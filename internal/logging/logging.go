// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel overrides the configured level when set
const EnvLevel = "VERTICAL_CROPPER_LOG_LEVEL"

// Setup points the global logger at a console writer on w (stderr when nil)
// and sets the level. An empty level means info.
func Setup(level string, w io.Writer) error {
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: w != os.Stderr}).
		With().
		Timestamp().
		Logger()
	return nil
}

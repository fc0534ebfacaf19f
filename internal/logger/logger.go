// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"info" json:"level"`
	Format string `long:"format" env:"FORMAT" description:"Log format (console or json)" default:"console" json:"format"`
	Output string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
}

// Setup initializes the global logger based on the provided configuration options.
// It sets the log level, output destination (stdout, stderr, or file), and format (JSON or Console).
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := openOutput(cfg.Output)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(writer).With().Timestamp().Logger()
		return
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: time.RFC3339,
	}

	// Colors only for a terminal and when NO_COLOR is not set
	if f, ok := writer.(*os.File); ok {
		if os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
			consoleWriter.NoColor = true
		}
	}

	log.Logger = log.Output(consoleWriter)
}

// Component returns a child of the global logger tagged with the component name.
// Call it after Setup, otherwise the child keeps the default writer.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// openOutput resolves the output option into a writer, falling back to stderr
// when a log file can not be opened.
func openOutput(output string) io.Writer {
	switch output {
	case "stdout":
		return os.Stdout
	case "stderr", "":
		return os.Stderr
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		tempLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		tempLogger.Error().Err(err).Str("path", output).Msg("Failed to open log file, falling back to stderr")
		return os.Stderr
	}

	return file
}

// isTerminal checks if the provided file descriptor refers to a character device (terminal).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Global variable to track the rotating writer for proper cleanup
var activeRotatingWriter *DailyRotatingWriter

// Setup configures application logging: pretty console output plus a daily
// rotating log file under logDir.
func Setup(logDir, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter, err := NewDailyRotatingWriter(logDir, "wabridge-%s.log")
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to create log writer: %w", err)
	}

	// Store the writer for later cleanup
	activeRotatingWriter = fileWriter

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	log := zerolog.New(io.MultiWriter(console, fileWriter)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return log, nil
}

// SetupFallback creates a console-only logger for when file logging fails.
func SetupFallback(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}

// Close properly closes the log file.
func Close() error {
	if activeRotatingWriter != nil {
		return activeRotatingWriter.Close()
	}
	return nil
}

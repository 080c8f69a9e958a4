// Package logging provides the structured logging facade used across
// treekv. It implements dragonboat's logger.ILogger interface, even
// though treekv has no replication layer of its own to plug it into.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Logger implementation
// --------------------------------------------------------------------------

// treeLogger implements logger.ILogger with a fixed-width text format.
type treeLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *treeLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *treeLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *treeLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *treeLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *treeLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

// Panicf logs the message at FATAL level and then panics. It is the path
// for unrecoverable errors; no code in treekv calls it.
func (l *treeLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.log("FATAL", "%s", message)
	panic(message)
}

func (l *treeLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-12s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// New creates a named logger writing to stdout.
func New(pkgName string) logger.ILogger {
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)
	return &treeLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// ParseLevel converts a string level to logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s (must be one of debug, info, warn, error)", level)
	}
}

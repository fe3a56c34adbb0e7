package utils

import (
	"log"
	"os"
	"strings"
)

type Logger struct {
	base  *log.Logger
	debug bool
}

func NewLogger() *Logger {
	debug := strings.EqualFold(strings.TrimSpace(os.Getenv("KESTREL_DEBUG")), "1") ||
		strings.EqualFold(strings.TrimSpace(os.Getenv("KESTREL_DEBUG")), "true")
	return &Logger{
		base:  log.New(os.Stdout, "", log.LstdFlags|log.LUTC),
		debug: debug,
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Printf("INFO "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Printf("ERROR "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || !l.debug {
		return
	}
	l.base.Printf("DEBUG "+format, args...)
}

package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is a console logger that renders a message followed by key=value
// pairs.
type Logger struct {
	out *log.Logger
}

// NewLogger creates a new Logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{out: log.New(os.Stdout, "", log.LstdFlags)}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) { l.write("INFO", msg, kv) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) { l.write("WARN", msg, kv) }

// Error logs an error message.
func (l *Logger) Error(msg string, kv ...any) { l.write("ERROR", msg, kv) }

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) { l.write("DEBUG", msg, kv) }

func (l *Logger) write(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(": ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v=?", kv[len(kv)-1])
	}
	l.out.Print(b.String())
}

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	debug           = os.Getenv("QUIZ_DEBUG") != ""

	infoColor  = color.New(color.FgYellow)
	warnColor  = color.New(color.FgMagenta)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
)

// SetOutput redirects all log lines. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetDebug toggles Debug lines.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

func Info(format string, args ...interface{}) {
	write(infoColor, "INFO", format, args...)
}

func Warn(format string, args ...interface{}) {
	write(warnColor, "WARN", format, args...)
}

func Error(format string, args ...interface{}) {
	write(errorColor, "ERROR", format, args...)
}

func Debug(format string, args ...interface{}) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	write(debugColor, "DEBUG", format, args...)
}

func write(c *color.Color, level, format string, args ...interface{}) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)

	mu.Lock()
	defer mu.Unlock()
	c.Fprintf(out, "[%s] [%s] %s\n", timestamp, level, message)
}

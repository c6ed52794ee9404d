package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kyokomi/emoji/v2"
	log "github.com/sirupsen/logrus"
)

type LoggerContextKey string

const (
	FormatJSON  = "json"
	FormatFancy = "fancy"

	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
	LevelPanic = "panic"

	FormatContextKey LoggerContextKey = "log-format"
)

var (
	Formats = []string{FormatJSON, FormatFancy}
	Levels  = []string{
		LevelTrace, LevelDebug, LevelInfo, LevelWarn,
		LevelError, LevelFatal, LevelPanic,
	}
)

// New returns an info level logger with the fancy format writing to stdout.
func New() (*log.Entry, error) {
	return NewWithOutput(os.Stdout)
}

func NewWithOutput(out io.Writer) (*log.Entry, error) {
	configureGlobalLogger()

	l := log.New()
	l.SetOutput(out)

	e := l.WithContext(context.Background())
	if err := Configure(e, LevelInfo, FormatFancy); err != nil {
		return nil, err
	}

	return e, nil
}

func Configure(e *log.Entry, level string, format string) error {
	formatter, err := getLogFormatter(format)
	if err != nil {
		return err
	}

	logLevel, err := getLogLevel(level)
	if err != nil {
		return err
	}

	l := e.Logger
	l.SetFormatter(formatter)
	l.SetLevel(logLevel)
	e.Context = context.WithValue(e.Context, FormatContextKey, format)

	return nil
}

// IsFancy reports whether the entry is configured for human readable output.
func IsFancy(e *log.Entry) bool {
	if e.Context == nil {
		return false
	}

	format, _ := e.Context.Value(FormatContextKey).(string)

	return format == FormatFancy
}

func getLogFormatter(format string) (log.Formatter, error) {
	switch format {
	case FormatJSON:
		return &log.JSONFormatter{}, nil
	case FormatFancy:
		return &fancyFormatter{}, nil
	}

	return nil, fmt.Errorf("unknown log format: %s, must be one of: %s",
		format, strings.Join(Formats, ", "))
}

func getLogLevel(level string) (log.Level, error) {
	switch level {
	case LevelTrace:
		return log.TraceLevel, nil
	case LevelDebug:
		return log.DebugLevel, nil
	case LevelInfo:
		return log.InfoLevel, nil
	case LevelWarn:
		return log.WarnLevel, nil
	case LevelError:
		return log.ErrorLevel, nil
	case LevelFatal:
		return log.FatalLevel, nil
	case LevelPanic:
		return log.PanicLevel, nil
	}

	return 0, fmt.Errorf("unknown log level: %s, must be one of: %s",
		level, strings.Join(Levels, ", "))
}

// fancyFormatter renders the message with emoji codes expanded, followed by
// the entry fields as sorted key=value pairs.
type fancyFormatter struct{}

func (f *fancyFormatter) Format(e *log.Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(emoji.Sprint(e.Message))

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, e.Data[k])
	}

	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

func configureGlobalLogger() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		PadLevelText:  true,
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}

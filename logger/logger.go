// Package logger formats logrus entries as
//
//	2006-01-02T15:04:05Z07:00 [LEVEL] [module] message key=value ...
//
// and configures the standard logrus logger to use it.
package logger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = time.RFC3339

// TextFormatter is a logrus.Formatter
type TextFormatter struct {
	// leave out timestamps, e.g. when the log collector adds its own
	DisableTimestamp bool

	// print levels as logrus names them (lowercase)
	DisableUppercase bool

	// defaults to RFC3339
	TimestampFormat string

	// fields are sorted unless this is set
	DisableSorting bool

	// quote empty field values
	QuoteEmptyFields bool

	// defaults to "
	QuoteCharacter string

	// printed in brackets before the message, if set
	ModuleName string
}

// Setup makes the standard logrus logger use a TextFormatter at the given level
func Setup(level, module string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log-level %q: %w", level, err)
	}
	logrus.SetFormatter(&TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		ModuleName:      module,
	})
	logrus.SetLevel(lvl)
	return nil
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(format))
		b.WriteByte(' ')
	}

	level := entry.Level.String()
	if !f.DisableUppercase {
		level = strings.ToUpper(level)
	}
	b.WriteString("[" + level + "] ")

	if f.ModuleName != "" {
		b.WriteString("[" + f.ModuleName + "] ")
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	if !f.DisableSorting {
		sort.Strings(keys)
	}

	parts := make([]string, 0, len(keys)+1)
	if entry.Message != "" {
		parts = append(parts, entry.Message)
	}
	for _, k := range keys {
		parts = append(parts, k+"="+f.formatValue(entry.Data[k]))
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *TextFormatter) needsQuoting(text string) bool {
	if len(text) == 0 {
		return f.QuoteEmptyFields
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.') {
			return true
		}
	}
	return false
}

func (f *TextFormatter) formatValue(value interface{}) string {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	default:
		return fmt.Sprint(value)
	}
	if !f.needsQuoting(text) {
		return text
	}
	q := f.QuoteCharacter
	if q == "" {
		q = `"`
	}
	return q + text + q
}

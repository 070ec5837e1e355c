package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		f    *TextFormatter
		msg  string
		data logrus.Fields
		exp  string
	}{
		{
			name: "plain",
			f:    &TextFormatter{},
			msg:  "hello",
			exp:  "2020-01-02T03:04:05Z [INFO] hello\n",
		},
		{
			name: "module and sorted fields",
			f:    &TextFormatter{DisableTimestamp: true, ModuleName: "api"},
			msg:  "request",
			data: logrus.Fields{"status": 404, "path": "/status"},
			exp:  "[INFO] [api] request path=\"/status\" status=404\n",
		},
		{
			name: "errors and empty values",
			f:    &TextFormatter{DisableTimestamp: true, DisableUppercase: true, QuoteEmptyFields: true, QuoteCharacter: "'"},
			msg:  "",
			data: logrus.Fields{"err": errors.New("timed out"), "empty": ""},
			exp:  "[info] empty='' err='timed out'\n",
		},
		{
			name: "custom timestamp",
			f:    &TextFormatter{TimestampFormat: "2006-01-02"},
			msg:  "x",
			data: logrus.Fields{"series": "secure-status"},
			exp:  "2020-01-02 [INFO] x series=secure-status\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tt.msg,
				Data:    tt.data,
			}
			out, err := tt.f.Format(entry)
			if err != nil {
				t.Fatalf("unexpected error %s", err)
			}
			if string(out) != tt.exp {
				t.Errorf("expected %q, got %q", tt.exp, string(out))
			}
		})
	}
}

func TestSetup(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())
	if err := Setup("debug", "hitcounter"); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logrus.GetLevel())
	}
	if err := Setup("loud", ""); err == nil {
		t.Fatalf("expected error for an invalid level")
	}
}

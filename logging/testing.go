package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes to the running test, so lines show up only for failing or verbose tests.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender writing each entry through tb.Log in the console format.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}

package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool
		clock clock.Clock

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

func newImpl(name string, level Level, inUTC bool, clk clock.Clock, appenders ...Appender) *impl {
	if clk == nil {
		clk = clock.New()
	}
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, clock: clk, appenders: appenders}
}

// newEntry stamps an entry with the logger's clock and the caller of the public log method.
func (imp *impl) newEntry(level Level, message string) *LogEntry {
	ret := &LogEntry{}
	ret.Time = imp.clock.Now()
	if imp.inUTC {
		ret.Time = ret.Time.UTC()
	}
	ret.LoggerName = imp.name
	ret.Caller = getCaller()
	ret.Level = level.AsZap()
	ret.Message = message
	return ret
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

// Sublogger shares the appenders and clock. Its level starts at the parent's and is changed
// independently afterwards.
func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = imp.name + "." + subname
	}
	sub := newImpl(newName, imp.level.Get(), imp.inUTC, imp.clock, imp.appenders...)
	return register(sub)
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.AsZap().Desugar()
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.AsZap().Named(name)
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.AsZap().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.AsZap().WithOptions(opts...)
}

// AsZap returns a zap logger at this logger's level writing to every appender that is also a
// zapcore.Core, such as the observer of NewObservedTestLogger.
func (imp *impl) AsZap() *zap.SugaredLogger {
	var cores []zapcore.Core
	for _, appender := range imp.appenders {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
		}
	}
	config := NewZapLoggerConfig()
	config.Level = zap.NewAtomicLevelAt(imp.Level())
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	if len(cores) > 0 {
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(append([]zapcore.Core{c}, cores...)...)
		}))
	}
	return ret
}

func (imp *impl) write(entry *LogEntry) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) print(level Level, args ...interface{}) {
	if level >= imp.level.Get() {
		imp.write(imp.newEntry(level, fmt.Sprint(args...)))
	}
}

func (imp *impl) printf(level Level, template string, args ...interface{}) {
	if level >= imp.level.Get() {
		imp.write(imp.newEntry(level, fmt.Sprintf(template, args...)))
	}
}

// printw turns keysAndValues into fields. Keys are stringified; a trailing key without a value
// is kept with an error value.
func (imp *impl) printw(level Level, msg string, keysAndValues ...interface{}) {
	if level < imp.level.Get() {
		return
	}
	entry := imp.newEntry(level, msg)
	entry.fields = make([]zapcore.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		var key string
		if stringer, ok := keysAndValues[i].(fmt.Stringer); ok {
			key = stringer.String()
		} else {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		if i+1 < len(keysAndValues) {
			entry.fields = append(entry.fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			entry.fields = append(entry.fields, zap.Any(key, errors.New("unpaired log key")))
		}
	}
	imp.write(entry)
}

func (imp *impl) Debug(args ...interface{}) { imp.print(DEBUG, args...) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.printf(DEBUG, template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.printw(DEBUG, msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) { imp.print(INFO, args...) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.printf(INFO, template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.printw(INFO, msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) { imp.print(WARN, args...) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.printf(WARN, template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.printw(WARN, msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) { imp.print(ERROR, args...) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.printf(ERROR, template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.printw(ERROR, msg, keysAndValues...)
}

// The Fatal methods log at ERROR, which no level filters, and exit the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.print(ERROR, args...)
	os.Exit(1)
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.printf(ERROR, template, args...)
	os.Exit(1)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.printw(ERROR, msg, keysAndValues...)
	os.Exit(1)
}

// getCaller returns the caller of the public log method, e.g. "mission/run.go:36".
func getCaller() zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	const skipToLogCaller = 4
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true
	if fn := runtime.FuncForPC(entryCaller.PC); fn != nil {
		entryCaller.Function = fn.Name()
	}
	return entryCaller
}

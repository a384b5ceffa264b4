package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const alertKey = "send_alert"

// AlertField marks an entry to be forwarded to the alert sink installed by WithAlerts.
func AlertField() zap.Field {
	return zap.Bool(alertKey, true)
}

// AlertSink receives plain text alert messages. It must not block.
type AlertSink func(message string)

// WithAlerts returns a logger that forwards entries carrying AlertField at or above minLevel to sink.
func (l *Logger) WithAlerts(minLevel zapcore.Level, sink AlertSink) *Logger {
	return &Logger{l.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &alertCore{Core: core, minLevel: minLevel, sink: sink}
	}))}
}

type alertCore struct {
	zapcore.Core
	minLevel zapcore.Level
	sink     AlertSink
}

func (a *alertCore) With(fields []zapcore.Field) zapcore.Core {
	return &alertCore{Core: a.Core.With(fields), minLevel: a.minLevel, sink: a.sink}
}

func (a *alertCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checked.AddCore(entry, a)
	}
	return checked
}

func (a *alertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && hasAlertField(fields) {
		a.sink(formatAlert(entry, fields))
	}
	return a.Core.Write(entry, fields)
}

func hasAlertField(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == alertKey && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

func formatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == alertKey {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 %s alert\n\nMessage: %s\n", entry.Level.CapitalString(), entry.Message)
	if len(keys) > 0 {
		b.WriteString("\nFields:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "• %s: %v\n", k, enc.Fields[k])
		}
	}
	fmt.Fprintf(&b, "\nTime: %s", entry.Time.Format("2006-01-02 15:04:05"))
	return b.String()
}

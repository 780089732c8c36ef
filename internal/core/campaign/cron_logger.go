package campaign

import (
	"github.com/robfig/cron/v3"
	"pushdispatch.app/internal/ports"
)

// cronLogger routes the cron library's logging into ports.Logger
type cronLogger struct {
	logger ports.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(toFields(keysAndValues), ports.F("error", err))
	l.logger.Error("cron: "+msg, fields...)
}

func toFields(keysAndValues []interface{}) []ports.Field {
	fields := make([]ports.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = "arg"
		}
		fields = append(fields, ports.F(key, keysAndValues[i+1]))
	}
	if len(keysAndValues)%2 == 1 {
		fields = append(fields, ports.F("extra", keysAndValues[len(keysAndValues)-1]))
	}
	return fields
}

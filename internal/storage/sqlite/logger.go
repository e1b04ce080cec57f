package sqlite

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// zapWriter feeds gorm's log lines into zap
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Warnf(format, args...)
}

// newGormLogger reports slow queries and failures through zap. Lookups that
// find nothing are expected and stay quiet.
func newGormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		log = zap.NewNop()
	}
	return logger.New(zapWriter{sugar: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

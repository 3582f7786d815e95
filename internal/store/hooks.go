package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vanshpatelx/Opinex/internal/metrics"
)

const startTimeKey = "opinex:start_time"

// RegisterHooks times raw and query statements into m.
func RegisterHooks(db *gorm.DB, m *metrics.Metrics) error {
	if err := db.Callback().Row().Before("gorm:row").Register("duration:row", markStart); err != nil {
		return errors.Wrap(err, "failed to register row duration hook")
	}
	if err := db.Callback().Query().Before("gorm:query").Register("duration:query", markStart); err != nil {
		return errors.Wrap(err, "failed to register query duration hook")
	}
	if err := db.Callback().Row().After("gorm:row").Register("metrics:row", recordInto(m, "row")); err != nil {
		return errors.Wrap(err, "failed to register row metrics hook")
	}
	if err := db.Callback().Query().After("gorm:query").Register("metrics:query", recordInto(m, "select")); err != nil {
		return errors.Wrap(err, "failed to register query metrics hook")
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func recordInto(m *metrics.Metrics, kind string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		var d time.Duration
		if start, ok := db.InstanceGet(startTimeKey); ok {
			d = time.Since(start.(time.Time))
		}
		m.RecordDatabaseQuery(kind, db.Error == nil, d)
	}
}

package models

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"hypertide/internal/constants"
)

// Job is the persisted definition of a scheduled unit of work. Rows are
// created by Add, mutated only through Alter's fixed field set, removed
// by Delete. Execution never touches the row itself, only the stat.
type Job struct {
	ID               int64
	Application      string
	Name             string
	ScheduleInterval time.Duration
	// CronExpression, when non-empty, fixes the schedule to the cron
	// expression instead of last_finish + ScheduleInterval.
	CronExpression string
	MaxRuntime     time.Duration // 0 = unlimited
	MaxRetries     int           // -1 = unlimited
	RetryPeriod    time.Duration
	ProcSchema     string
	ProcName       string
	Owner          string
	Scheduled      bool
	// HypertableID binds a policy job to its target hypertable so all
	// of a hypertable's jobs can be dropped with it. 0 for custom jobs.
	HypertableID int64
	Config       json.RawMessage // nil = no config
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsInternal reports whether the job targets a built-in policy callable.
func (j *Job) IsInternal() bool {
	return j.ProcSchema == constants.InternalSchema
}

// NextRun computes the regular next start after a finish time: the next
// cron occurrence for fixed schedules, last finish plus the interval
// otherwise. A cron expression is validated at Add time, so a parse
// failure here falls back to the interval.
func (j *Job) NextRun(from time.Time) time.Time {
	if j.CronExpression != "" {
		if sched, err := cron.ParseStandard(j.CronExpression); err == nil {
			return sched.Next(from)
		}
	}
	return from.Add(j.ScheduleInterval)
}

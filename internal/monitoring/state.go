package monitoring

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MaintenanceJobSummary is a point-in-time view of one background job.
type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"lastStatus"`
	LastRunAt           time.Time     `json:"lastRunAt"`
	LastDuration        time.Duration `json:"lastDuration"`
	LastError           string        `json:"lastError,omitempty"`
	LastAffected        int64         `json:"lastAffected"`
	ConsecutiveFailures uint64        `json:"consecutiveFailures"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt"`
	TotalRuns           uint64        `json:"totalRuns"`
}

// JobTracker records the outcome of maintenance runs so health probes can
// report stale or failing jobs. It is safe for concurrent use.
type JobTracker struct {
	jobs sync.Map // string -> *maintenanceStats
	now  func() time.Time
}

// NewJobTracker returns an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{now: time.Now}
}

// Register makes a job visible before its first run.
func (t *JobTracker) Register(job string) {
	t.entry(job)
}

// Record stores the result of a run. A nil err marks the run successful.
func (t *JobTracker) Record(job string, affected int64, err error, duration time.Duration) {
	t.entry(job).record(t.now(), affected, err, duration)
}

// Jobs returns the known jobs sorted by name.
func (t *JobTracker) Jobs() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	t.jobs.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*maintenanceStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func (t *JobTracker) entry(job string) *maintenanceStats {
	job = strings.TrimSpace(job)
	if job == "" {
		job = "unknown"
	}
	value, _ := t.jobs.LoadOrStore(job, &maintenanceStats{})
	return value.(*maintenanceStats)
}

type maintenanceStats struct {
	lastStatus          atomic.Value // string
	lastError           atomic.Value // string
	lastRun             atomic.Int64 // unix nano
	lastDuration        atomic.Int64 // nanoseconds
	lastAffected        atomic.Int64
	consecutiveFailures atomic.Uint64
	totalRuns           atomic.Uint64
	lastSuccessfulRun   atomic.Int64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           unixNano(m.lastRun.Load()),
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		LastAffected:        m.lastAffected.Load(),
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		LastSuccessAt:       unixNano(m.lastSuccessfulRun.Load()),
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(now time.Time, affected int64, err error, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.lastAffected.Store(affected)
	m.totalRuns.Add(1)

	if err != nil {
		m.lastStatus.Store("failure")
		m.lastError.Store(err.Error())
		m.consecutiveFailures.Add(1)
		return
	}

	m.lastStatus.Store("success")
	m.lastError.Store("")
	m.consecutiveFailures.Store(0)
	m.lastSuccessfulRun.Store(now.UnixNano())
}

func unixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

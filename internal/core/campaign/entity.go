package campaign

import (
	"strings"
	"time"
	_ "time/tzdata"

	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/core/ledger"
	"pushdispatch.app/internal/ports"
)

const (
	JobMorning   = "morning"
	JobAfternoon = "afternoon"
	JobEvening   = "evening"
	JobHourly    = "hourly"

	DefaultTimezone = "Europe/London"
)

// Job is one scheduled campaign. Jobs are defined at start and never mutated.
type Job struct {
	Name              string             `json:"name"`
	Schedule          string             `json:"schedule"`
	Timezone          string             `json:"timezone"`
	Kind              dispatch.Kind      `json:"kind"`
	Granularity       ledger.Granularity `json:"granularity"`
	SkipWhenCheckedIn bool               `json:"skipWhenCheckedIn"`
}

// Spec is the cron expression bound to the job's zone.
func (j Job) Spec() string {
	return "CRON_TZ=" + j.Timezone + " " + j.Schedule
}

// DefaultJobs returns the campaign catalogue in the given zone.
func DefaultJobs(timezone string) []Job {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return []Job{
		{Name: JobMorning, Schedule: "0 8 * * *", Timezone: timezone, Kind: dispatch.KindMorningTasks, Granularity: ledger.GranularityDaily},
		{Name: JobAfternoon, Schedule: "0 14 * * *", Timezone: timezone, Kind: dispatch.KindAfternoonReminder, Granularity: ledger.GranularityDaily, SkipWhenCheckedIn: true},
		{Name: JobEvening, Schedule: "0 20 * * *", Timezone: timezone, Kind: dispatch.KindEveningSummary, Granularity: ledger.GranularityDaily},
		{Name: JobHourly, Schedule: "0 * * * *", Timezone: timezone, Kind: dispatch.KindHourlyReminder, Granularity: ledger.GranularityHourly, SkipWhenCheckedIn: true},
	}
}

// Task is one check-in question of the day
type Task struct {
	ID        string
	Text      string
	Completed bool
}

// TreatmentState is a recipient's protocol snapshot for one evaluation
type TreatmentState struct {
	ActiveProtocols  []ports.ProtocolData
	PendingProtocols []ports.ProtocolData
	Tasks            []Task
	CheckedInToday   bool
	ProgressPercent  float64
}

func (s *TreatmentState) CompletedTasks() int {
	n := 0
	for _, t := range s.Tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// Content is a resolved message for one recipient
type Content struct {
	Kind        dispatch.Kind
	Granularity ledger.Granularity
	Title       string
	Body        string
	Status      bool
}

// StatusPolicy decides what a status condition (no treatment, starting soon,
// complete) does to the job's regular message.
type StatusPolicy int

const (
	// StatusReplace sends the status message instead of the regular one.
	StatusReplace StatusPolicy = iota
	// StatusSuppress sends nothing while a status condition holds.
	StatusSuppress
)

func (p StatusPolicy) String() string {
	if p == StatusSuppress {
		return "suppress"
	}
	return "replace"
}

func StatusPolicyFromString(s string) StatusPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "suppress") {
		return StatusSuppress
	}
	return StatusReplace
}

// DeviceFanout decides how many of a recipient's devices get campaign traffic
type DeviceFanout int

const (
	FanoutFirstDevice DeviceFanout = iota
	FanoutAllDevices
)

func (f DeviceFanout) String() string {
	if f == FanoutAllDevices {
		return "all"
	}
	return "first"
}

func DeviceFanoutFromString(s string) DeviceFanout {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return FanoutAllDevices
	}
	return FanoutFirstDevice
}

// RunReport summarizes one job firing
type RunReport struct {
	RunID       string    `json:"runId"`
	Job         string    `json:"job"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Recipients  int       `json:"recipients"`
	Sent        int       `json:"sent"`
	NoContent   int       `json:"noContent"`
	Duplicates  int       `json:"duplicates"`
	Failed      int       `json:"failed"`
	Unavailable int       `json:"unavailable"`
}

// Package models provides the data model shared by the simulator, exporters and sinks.
package models

import (
	"strconv"
	"time"
)

// TimeLayout is the calendar format used for the start date and for every exported timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// FailureReason explains why a login attempt failed.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonAccountLocked
	ReasonWrongUsername
	ReasonWrongPassword
)

// String returns the exported name of the reason, empty for ReasonNone.
func (r FailureReason) String() string {
	switch r {
	case ReasonAccountLocked:
		return "AccountLocked"
	case ReasonWrongUsername:
		return "WrongUsername"
	case ReasonWrongPassword:
		return "WrongPassword"
	default:
		return ""
	}
}

// MarshalText renders the reason by name so JSON and YAML output stay readable.
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// LogRecord is one attempted credential check.
type LogRecord struct {
	Time          time.Time     `json:"datetime"`
	SourceIP      string        `json:"source_ip"`
	Username      string        `json:"username"`
	Success       bool          `json:"success"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Attack        bool          `json:"attack"` // produced by the attack injector
}

// Row renders the record as the tabular log contract:
// datetime, source_ip, username, success, failure_reason.
func (l LogRecord) Row() []string {
	return []string{
		l.Time.Format(TimeLayout),
		l.SourceIP,
		l.Username,
		strconv.FormatBool(l.Success),
		l.FailureReason.String(),
	}
}

// LogHeader is the header row matching LogRecord.Row.
var LogHeader = []string{"datetime", "source_ip", "username", "success", "failure_reason"}

// AttackRecord covers one attacked hour.
type AttackRecord struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	SourceIP string    `json:"source_ip"`
}

// Duration returns how long the attack ran in simulated time.
func (a AttackRecord) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Row renders the record as start, end, source_ip.
func (a AttackRecord) Row() []string {
	return []string{a.Start.Format(TimeLayout), a.End.Format(TimeLayout), a.SourceIP}
}

// AttackHeader is the header row matching AttackRecord.Row.
var AttackHeader = []string{"start", "end", "source_ip"}

// Result is the immutable output of one completed simulation.
type Result struct {
	Logs    []LogRecord
	Attacks []AttackRecord
	Hours   int // number of hourly ticks simulated
}

// Run bundles a result with the inputs that produced it, for export and sinks.
type Run struct {
	ID     string
	Seed   uint64
	Start  time.Time
	Pool   *IdentityPool
	Result *Result
}

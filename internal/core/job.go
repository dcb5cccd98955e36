package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type JobKind string

const (
	JobKindTicket JobKind = "ticket"
	JobKindAPM    JobKind = "apm"
	JobKindLabel  JobKind = "label"
)

func (k JobKind) IsValid() bool {
	switch k {
	case JobKindTicket, JobKindAPM, JobKindLabel:
		return true
	}
	return false
}

// DefaultCopies is used whenever a request omits or garbles its copy count.
func (k JobKind) DefaultCopies() int {
	switch k {
	case JobKindTicket:
		return 2
	case JobKindLabel:
		return 6
	default:
		return 1
	}
}

type JobStatus string

const (
	JobStatusDelivered JobStatus = "delivered"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the closed set of printable request variants.
type Job interface {
	Kind() JobKind
	RequestedCopies() CopyCount
	isJob()
}

const (
	defaultDestinationLabel = "Poli Tujuan"
	secondaryPlaceholder    = "-"
)

type TicketJob struct {
	QueueNumber FlexString `json:"queueNumber"`
	Label       string     `json:"printLabel"`
	Destination string     `json:"poliName"`
	Copies      CopyCount  `json:"copies"`
}

func (*TicketJob) Kind() JobKind                { return JobKindTicket }
func (j *TicketJob) RequestedCopies() CopyCount { return j.Copies }
func (*TicketJob) isJob()                       {}

func (j *TicketJob) DestinationLabel() string {
	if strings.TrimSpace(j.Label) == "" {
		return defaultDestinationLabel
	}
	return j.Label
}

type ApmJob struct {
	QueueNumber     FlexString `json:"queueNumber"`
	PoliName        string     `json:"poliName"`
	Letter          string     `json:"letter"`
	SecondaryNumber FlexString `json:"secondaryNumber"`
	Copies          CopyCount  `json:"copies"`
}

func (*ApmJob) Kind() JobKind                { return JobKindAPM }
func (j *ApmJob) RequestedCopies() CopyCount { return j.Copies }
func (*ApmJob) isJob()                       {}

// SecondaryLine composes "{letter}-{number}", or just the number when no
// letter is given. An empty result means the line is omitted.
func (j *ApmJob) SecondaryLine() string {
	secondary := strings.TrimSpace(string(j.SecondaryNumber))
	if secondary == "" || secondary == secondaryPlaceholder {
		return ""
	}
	if letter := strings.TrimSpace(j.Letter); letter != "" {
		return letter + "-" + secondary
	}
	return secondary
}

type LabelJob struct {
	Patient PatientRecord
	Copies  CopyCount
}

func (*LabelJob) Kind() JobKind                { return JobKindLabel }
func (j *LabelJob) RequestedCopies() CopyCount { return j.Copies }
func (*LabelJob) isJob()                       {}

// CopiesFor resolves the effective copy count for a job.
func CopiesFor(job Job) int {
	return job.RequestedCopies().Or(job.Kind().DefaultCopies())
}

// FlexString accepts a JSON string or number. Integral numbers are written
// without exponent or fraction, so 12.0 reads as "12" and 1e3 as "1000".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(formatNumber(n))
	return nil
}

func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	v, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f FlexString) String() string {
	return string(f)
}

// CopyCount accepts a JSON number or numeric string. Zero means unset.
type CopyCount int

func (c *CopyCount) UnmarshalJSON(data []byte) error {
	*c = 0
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
		*c = CopyCount(n)
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && f >= 1 {
		*c = CopyCount(int(f))
	}
	return nil
}

func (c CopyCount) Or(def int) int {
	if c < 1 {
		return def
	}
	return int(c)
}

type RenderedJob struct {
	ID      string
	Kind    JobKind
	Data    []byte
	Copies  int
	Targets []PrinterTarget
}

type JobResult struct {
	JobID      string    `json:"job_id"`
	Kind       JobKind   `json:"kind"`
	Status     JobStatus `json:"status"`
	Copies     int       `json:"copies"`
	Delivered  int       `json:"delivered"`
	Target     string    `json:"target,omitempty"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSearching   Status = "searching"
	StatusScoring     Status = "scoring"
	StatusDownloading Status = "downloading"
	StatusAnalyzing   Status = "analyzing"
	StatusPlacing     Status = "placing"
	StatusCompleted   Status = "completed"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

// Decision labels persisted after scoring.
const (
	DecisionAccepted       = "accepted"
	DecisionBelowThreshold = "rejected_below_threshold"
	DecisionNoCandidates   = "no_candidates"
)

// BucketUnclassified is recorded when beatmap data could not be analyzed.
const BucketUnclassified = "Unclassified"

// Failure kinds recorded by the run itself rather than a stage error.
const (
	FailureCancelled    = "cancelled"
	FailureBatchAborted = "batch_aborted"
)

// CancelledMessage is the error message set on tasks abandoned by run cancellation.
const CancelledMessage = "Run cancelled"

// BatchAbortedMessage is the error message set on tasks abandoned after the
// failure cap tripped.
const BatchAbortedMessage = "Run aborted: failure limit reached"

var allStatuses = []Status{
	StatusPending,
	StatusSearching,
	StatusScoring,
	StatusDownloading,
	StatusAnalyzing,
	StatusPlacing,
	StatusCompleted,
	StatusRejected,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSearching:   {},
	StatusScoring:     {},
	StatusDownloading: {},
	StatusAnalyzing:   {},
	StatusPlacing:     {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusRejected:  {},
	StatusFailed:    {},
}

// Task represents one audio track moving through the pipeline, persisted in SQLite.
type Task struct {
	ID              int64
	TrackPath       string
	TrackTitle      string
	TrackArtist     string
	TrackAlbum      string
	TrackKey        string
	RunID           string
	Status          Status
	CandidatesJSON  string
	Decision        string
	MapID           string
	MapName         string
	MatchScore      float64
	QualityScore    float64
	ArchivePath     string
	FinalPath       string
	Bucket          string
	NotesPerSecond  float64
	PeakNPS         float64
	FailureKind     string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (t Task) IsProcessing() bool {
	_, ok := processingStatuses[t.Status]
	return ok
}

// IsTerminal reports whether the task has reached a final state.
func (t Task) IsTerminal() bool {
	return IsTerminalStatus(t.Status)
}

// IsTerminalStatus reports whether a status is final.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// Label returns the "artist - title" form used in logs and progress output.
func (t Task) Label() string {
	artist := strings.TrimSpace(t.TrackArtist)
	title := strings.TrimSpace(t.TrackTitle)
	switch {
	case artist == "" && title == "":
		return t.TrackPath
	case artist == "":
		return title
	default:
		return artist + " - " + title
	}
}

// InitProgress resets progress fields for a new stage.
func (t *Task) InitProgress(stage, message string) {
	t.ProgressStage = stage
	t.ProgressMessage = message
	t.ProgressPercent = 0
	t.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (t *Task) SetProgress(stage, message string, percent float64) {
	t.ProgressStage = stage
	t.ProgressMessage = message
	t.ProgressPercent = percent
}

// SetFailed marks the task as failed with the given classification and message.
func (t *Task) SetFailed(kind, message string) {
	t.Status = StatusFailed
	t.FailureKind = kind
	t.ErrorMessage = message
	t.ProgressStage = "Failed"
	t.ProgressPercent = 0
	t.ProgressMessage = message
}

// SetRejected marks the task as rejected with the scoring decision that caused it.
func (t *Task) SetRejected(decision, message string) {
	t.Status = StatusRejected
	t.Decision = decision
	t.ProgressStage = "Rejected"
	t.ProgressPercent = 100
	t.ProgressMessage = message
}

package entity

import "time"

type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditError   AuditStatus = "error"
	AuditSkipped AuditStatus = "skipped"
)

// AuditEntry is the forensic record of one iteration. Entries are created once
// through NewAuditEntry and never modified.
type AuditEntry struct {
	Timestamp       time.Time   `json:"timestamp"`
	RequestID       string      `json:"request_id"`
	Iteration       int         `json:"iteration"`
	TaskDescription string      `json:"task_description"`
	ScreenshotPath  string      `json:"screenshot_path"`
	MouseBefore     Point       `json:"mouse_position_before"`
	ActionTaken     ActionKind  `json:"action_taken"`
	Coordinates     *Point      `json:"coordinates"`
	Confidence      float64     `json:"confidence"`
	Reasoning       string      `json:"reasoning"`
	Status          AuditStatus `json:"status"`
	Error           *string     `json:"error"`
}

// AuditRecord holds everything in an AuditEntry except the timestamp.
type AuditRecord struct {
	RequestID       string
	Iteration       int
	TaskDescription string
	ScreenshotPath  string
	MouseBefore     Point
	Result          NavigationResult
	Status          AuditStatus
	Error           string
}

// Clock is overridden in tests.
var Clock = time.Now

// NewAuditEntry stamps rec with the current UTC time.
func NewAuditEntry(rec AuditRecord) AuditEntry {
	e := AuditEntry{
		Timestamp:       Clock().UTC(),
		RequestID:       rec.RequestID,
		Iteration:       rec.Iteration,
		TaskDescription: rec.TaskDescription,
		ScreenshotPath:  rec.ScreenshotPath,
		MouseBefore:     rec.MouseBefore,
		ActionTaken:     rec.Result.Action(),
		Coordinates:     rec.Result.CoordinatesPtr(),
		Confidence:      rec.Result.Confidence(),
		Reasoning:       rec.Result.Reasoning(),
		Status:          rec.Status,
	}
	if rec.Error != "" {
		msg := rec.Error
		e.Error = &msg
	}
	return e
}

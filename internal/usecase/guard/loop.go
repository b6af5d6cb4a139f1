package guard

import (
	"fmt"

	"vision-navigator/internal/domain/entity"
)

const (
	DefaultLoopThreshold  = 3
	DefaultLoopBufferSize = 10
	DefaultLoopTolerance  = 5
)

// LoopCheck is the answer to "would acting on this point repeat recent history".
type LoopCheck struct {
	Detected bool
	Matches  int
	Warning  string
}

// LoopDetector remembers recent actions of one session. Matches count across
// the whole window, not only consecutive actions.
type LoopDetector struct {
	history   *RingBuffer[entity.ActionHistoryEntry]
	threshold int
	tolerance int
}

func NewLoopDetector(bufferSize, threshold, tolerance int) *LoopDetector {
	return &LoopDetector{
		history:   NewRingBuffer[entity.ActionHistoryEntry](bufferSize),
		threshold: threshold,
		tolerance: tolerance,
	}
}

func (d *LoopDetector) Record(action entity.ActionKind, coords *entity.Point) {
	var c *entity.Point
	if coords != nil {
		c = entity.PointPtr(*coords)
	}
	d.history.Push(entity.ActionHistoryEntry{
		Action:      action,
		Coordinates: c,
		Timestamp:   entity.Clock().UTC(),
	})
}

// Check counts remembered actions whose target lies within tolerance of p on both axes.
func (d *LoopDetector) Check(p entity.Point) LoopCheck {
	matches := 0
	for _, h := range d.history.Items() {
		if h.Coordinates == nil {
			continue
		}
		if abs(h.Coordinates.X-p.X) <= d.tolerance && abs(h.Coordinates.Y-p.Y) <= d.tolerance {
			matches++
		}
	}

	if matches < d.threshold {
		return LoopCheck{Matches: matches}
	}
	return LoopCheck{
		Detected: true,
		Matches:  matches,
		Warning: fmt.Sprintf("Loop detected: %s matches %d recent actions within %dpx (threshold %d)",
			p, matches, d.tolerance, d.threshold),
	}
}

// History returns remembered actions, oldest first.
func (d *LoopDetector) History() []entity.ActionHistoryEntry {
	return d.history.Items()
}

func (d *LoopDetector) Reset() {
	d.history.Reset()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

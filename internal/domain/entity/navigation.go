package entity

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidResult is returned when a NavigationResult would break one of its invariants.
var ErrInvalidResult = errors.New("invalid navigation result")

// NavigationParams carries the raw inputs for NewNavigationResult.
type NavigationParams struct {
	Action           ActionKind
	Coordinates      *Point
	Confidence       float64
	Reasoning        string
	RequiresFollowup bool
	TextToType       string
}

// NavigationResult is one decision of the navigator. It is immutable: the only
// way to obtain one is NewNavigationResult, and the derive helpers below
// rebuild through it.
type NavigationResult struct {
	action           ActionKind
	coordinates      *Point
	confidence       float64
	reasoning        string
	requiresFollowup bool
	textToType       string
}

func NewNavigationResult(p NavigationParams) (NavigationResult, error) {
	if int(p.Action) >= len(actionNames) {
		return NavigationResult{}, fmt.Errorf("%w: unknown action %d", ErrInvalidResult, uint8(p.Action))
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return NavigationResult{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidResult, p.Confidence)
	}
	if p.Action.NeedsCoordinates() && p.Coordinates == nil {
		return NavigationResult{}, fmt.Errorf("%w: %s requires coordinates", ErrInvalidResult, p.Action)
	}
	if p.Action == ActionType && p.TextToType == "" {
		return NavigationResult{}, fmt.Errorf("%w: type requires non-empty text", ErrInvalidResult)
	}

	r := NavigationResult{
		action:           p.Action,
		confidence:       p.Confidence,
		reasoning:        p.Reasoning,
		requiresFollowup: p.RequiresFollowup,
		textToType:       p.TextToType,
	}
	if p.Coordinates != nil {
		r.coordinates = PointPtr(*p.Coordinates)
	}
	return r, nil
}

// NoAction builds a safe result that does nothing. It cannot fail.
func NoAction(reasoning string) NavigationResult {
	return NavigationResult{action: ActionNoAction, reasoning: reasoning}
}

func (r NavigationResult) Action() ActionKind     { return r.action }
func (r NavigationResult) Confidence() float64    { return r.confidence }
func (r NavigationResult) Reasoning() string      { return r.reasoning }
func (r NavigationResult) RequiresFollowup() bool { return r.requiresFollowup }
func (r NavigationResult) TextToType() string     { return r.textToType }
func (r NavigationResult) HasCoordinates() bool   { return r.coordinates != nil }

// Coordinates returns the target point and whether one is set.
func (r NavigationResult) Coordinates() (Point, bool) {
	if r.coordinates == nil {
		return Point{}, false
	}
	return *r.coordinates, true
}

// CoordinatesPtr returns a fresh copy of the coordinates, or nil.
func (r NavigationResult) CoordinatesPtr() *Point {
	if r.coordinates == nil {
		return nil
	}
	return PointPtr(*r.coordinates)
}

// Params returns the inputs that would rebuild r.
func (r NavigationResult) Params() NavigationParams {
	return NavigationParams{
		Action:           r.action,
		Coordinates:      r.CoordinatesPtr(),
		Confidence:       r.confidence,
		Reasoning:        r.reasoning,
		RequiresFollowup: r.requiresFollowup,
		TextToType:       r.textToType,
	}
}

// Downgrade replaces r with a NoAction that keeps r's reasoning followed by note.
func (r NavigationResult) Downgrade(note string) NavigationResult {
	return NoAction(joinReasoning(r.reasoning, note))
}

// Annotate returns a copy of r with note appended to its reasoning.
func (r NavigationResult) Annotate(note string) NavigationResult {
	r.reasoning = joinReasoning(r.reasoning, note)
	if r.coordinates != nil {
		r.coordinates = PointPtr(*r.coordinates)
	}
	return r
}

func joinReasoning(base, note string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return note
	}
	if note == "" {
		return base
	}
	return base + " " + note
}

func (r NavigationResult) String() string {
	var b strings.Builder
	b.WriteString(r.action.String())
	if r.coordinates != nil {
		b.WriteString(" at ")
		b.WriteString(r.coordinates.String())
	}
	if r.textToType != "" {
		fmt.Fprintf(&b, " text=%q", r.textToType)
	}
	fmt.Fprintf(&b, " confidence=%.2f", r.confidence)
	return b.String()
}

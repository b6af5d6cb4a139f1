package guard

import (
	"fmt"
	"math"

	"vision-navigator/internal/domain/entity"
)

// DefaultBoundsMargin is how far outside the screen a point may land and still be clamped.
const DefaultBoundsMargin = 10

// ClampConfidenceFactor scales the confidence of a clamped result.
const ClampConfidenceFactor = 0.9

type Verdict uint8

const (
	Unchanged Verdict = iota
	Clamped
	Rejected
)

func (v Verdict) String() string {
	switch v {
	case Unchanged:
		return "unchanged"
	case Clamped:
		return "clamped"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("verdict(%d)", uint8(v))
}

// ValidateCoordinates checks result's target against screen. Points within
// margin pixels of the screen are clamped onto it; anything further out turns
// the result into a NoAction.
func ValidateCoordinates(result entity.NavigationResult, screen entity.ScreenSize, margin int) (entity.NavigationResult, Verdict) {
	p, ok := result.Coordinates()
	if !ok || screen.Contains(p) {
		return result, Unchanged
	}

	overflow := max(axisOverflow(p.X, screen.Width), axisOverflow(p.Y, screen.Height))
	if overflow > margin {
		return result.Downgrade(fmt.Sprintf(
			"[Rejected coordinates %s: %dpx outside %s screen exceeds %dpx margin]",
			p, overflow, screen, margin)), Rejected
	}

	clamped := entity.Point{X: clampAxis(p.X, screen.Width), Y: clampAxis(p.Y, screen.Height)}
	params := result.Params()
	params.Coordinates = &clamped
	params.Confidence = result.Confidence() * ClampConfidenceFactor
	out, err := entity.NewNavigationResult(params)
	if err != nil {
		return result.Downgrade(fmt.Sprintf("[Could not clamp coordinates %s: %v]", p, err)), Rejected
	}
	return out.Annotate(fmt.Sprintf("[Coordinates clamped from %s to %s]", p, clamped)), Clamped
}

// axisOverflow saturates at math.MaxInt so it never wraps negative.
func axisOverflow(v, limit int) int {
	switch {
	case v < 0:
		if v == math.MinInt {
			return math.MaxInt
		}
		return -v
	case v > limit:
		return v - limit
	}
	return 0
}

func clampAxis(v, limit int) int {
	return min(max(v, 0), limit)
}

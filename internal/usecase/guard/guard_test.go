package guard

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-navigator/internal/domain/entity"
)

func click(t *testing.T, x, y int, confidence float64, reasoning string) entity.NavigationResult {
	t.Helper()
	r, err := entity.NewNavigationResult(entity.NavigationParams{
		Action:      entity.ActionClick,
		Coordinates: &entity.Point{X: x, Y: y},
		Confidence:  confidence,
		Reasoning:   reasoning,
	})
	require.NoError(t, err)
	return r
}

var fullHD = entity.ScreenSize{Width: 1920, Height: 1080}

func TestValidateCoordinates_Unchanged(t *testing.T) {
	in := click(t, 500, 300, 0.8, "button")
	out, verdict := ValidateCoordinates(in, fullHD, DefaultBoundsMargin)

	assert.Equal(t, Unchanged, verdict)
	assert.Equal(t, in, out)
}

func TestValidateCoordinates_EdgeIsInside(t *testing.T) {
	_, verdict := ValidateCoordinates(click(t, 1920, 1080, 0.8, "corner"), fullHD, DefaultBoundsMargin)
	assert.Equal(t, Unchanged, verdict)
}

func TestValidateCoordinates_Clamped(t *testing.T) {
	out, verdict := ValidateCoordinates(click(t, 1925, 300, 0.8, "edge button"), fullHD, DefaultBoundsMargin)

	assert.Equal(t, Clamped, verdict)
	p, ok := out.Coordinates()
	require.True(t, ok)
	assert.Equal(t, entity.Point{X: 1920, Y: 300}, p)
	assert.InDelta(t, 0.72, out.Confidence(), 1e-9)
	assert.Equal(t, entity.ActionClick, out.Action())
	assert.Contains(t, out.Reasoning(), "edge button")
	assert.Contains(t, out.Reasoning(), "clamped from (1925, 300) to (1920, 300)")
}

func TestValidateCoordinates_ClampedNegative(t *testing.T) {
	out, verdict := ValidateCoordinates(click(t, -4, -10, 1, "top left"), fullHD, DefaultBoundsMargin)

	assert.Equal(t, Clamped, verdict)
	p, _ := out.Coordinates()
	assert.Equal(t, entity.Point{X: 0, Y: 0}, p)
}

func TestValidateCoordinates_Rejected(t *testing.T) {
	out, verdict := ValidateCoordinates(click(t, 2500, 300, 0.9, "far away"), fullHD, DefaultBoundsMargin)

	assert.Equal(t, Rejected, verdict)
	assert.Equal(t, entity.ActionNoAction, out.Action())
	assert.False(t, out.HasCoordinates())
	assert.Nil(t, out.CoordinatesPtr())
	assert.Zero(t, out.Confidence())
	assert.Contains(t, out.Reasoning(), "580px")
}

func TestValidateCoordinates_ExtremeValuesRejected(t *testing.T) {
	for _, x := range []int{math.MinInt, math.MinInt + 1, math.MaxInt} {
		out, verdict := ValidateCoordinates(click(t, x, 300, 0.9, "runaway"), fullHD, DefaultBoundsMargin)

		assert.Equal(t, Rejected, verdict, "x=%d", x)
		assert.Equal(t, entity.ActionNoAction, out.Action(), "x=%d", x)
		assert.False(t, out.HasCoordinates(), "x=%d", x)
	}
}

func TestAxisOverflow_NeverNegative(t *testing.T) {
	assert.Equal(t, math.MaxInt, axisOverflow(math.MinInt, 1920))
	assert.Equal(t, math.MaxInt, axisOverflow(math.MinInt+1, 1920))
	assert.Equal(t, math.MaxInt-1920, axisOverflow(math.MaxInt, 1920))
	assert.Equal(t, 5, axisOverflow(-5, 1920))
	assert.Zero(t, axisOverflow(1920, 1920))
}

func TestValidateCoordinates_NoCoordinates(t *testing.T) {
	in := entity.NoAction("nothing")
	out, verdict := ValidateCoordinates(in, fullHD, DefaultBoundsMargin)
	assert.Equal(t, Unchanged, verdict)
	assert.Equal(t, in, out)
}

func TestRingBuffer_EvictsOldest(t *testing.T) {
	rb := NewRingBuffer[int](5)
	for i := 1; i <= 10; i++ {
		rb.Push(i)
	}

	assert.Equal(t, 5, rb.Len())
	assert.Equal(t, 5, rb.Cap())
	assert.Equal(t, []int{6, 7, 8, 9, 10}, rb.Items())
}

func TestRingBuffer_PartialAndReset(t *testing.T) {
	rb := NewRingBuffer[string](3)
	rb.Push("a")
	rb.Push("b")
	assert.Equal(t, []string{"a", "b"}, rb.Items())

	rb.Reset()
	assert.Zero(t, rb.Len())
	assert.Empty(t, rb.Items())

	rb.Push("c")
	assert.Equal(t, []string{"c"}, rb.Items())
}

func TestRingBuffer_MinimumCapacity(t *testing.T) {
	rb := NewRingBuffer[int](0)
	rb.Push(1)
	rb.Push(2)
	assert.Equal(t, []int{2}, rb.Items())
}

func TestLoopDetector(t *testing.T) {
	d := NewLoopDetector(DefaultLoopBufferSize, 3, 5)
	for _, p := range []entity.Point{{X: 100, Y: 100}, {X: 102, Y: 101}, {X: 99, Y: 100}} {
		d.Record(entity.ActionClick, &p)
	}

	check := d.Check(entity.Point{X: 101, Y: 99})
	assert.True(t, check.Detected)
	assert.Equal(t, 3, check.Matches)
	assert.Contains(t, check.Warning, "Loop detected")
	assert.Contains(t, check.Warning, "(101, 99)")

	check = d.Check(entity.Point{X: 400, Y: 400})
	assert.False(t, check.Detected)
	assert.Zero(t, check.Matches)
	assert.Empty(t, check.Warning)
}

func TestLoopDetector_MatchesAcrossWindow(t *testing.T) {
	d := NewLoopDetector(10, 3, 5)
	target := entity.Point{X: 50, Y: 50}
	elsewhere := entity.Point{X: 900, Y: 20}

	d.Record(entity.ActionClick, &target)
	d.Record(entity.ActionClick, &elsewhere)
	d.Record(entity.ActionType, nil)
	d.Record(entity.ActionClick, &target)
	d.Record(entity.ActionClick, &elsewhere)
	d.Record(entity.ActionClick, &target)

	assert.True(t, d.Check(target).Detected)
}

func TestLoopDetector_WindowForgets(t *testing.T) {
	d := NewLoopDetector(3, 2, 0)
	target := entity.Point{X: 10, Y: 10}
	d.Record(entity.ActionClick, &target)
	for i := 0; i < 3; i++ {
		other := entity.Point{X: 500 + i, Y: 500}
		d.Record(entity.ActionClick, &other)
	}
	assert.False(t, d.Check(target).Detected)
}

func TestLoopDetector_HistoryAndReset(t *testing.T) {
	old := entity.Clock
	entity.Clock = func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { entity.Clock = old })

	d := NewLoopDetector(10, 3, 5)
	p := entity.Point{X: 1, Y: 2}
	d.Record(entity.ActionDoubleClick, &p)
	p.X = 99

	h := d.History()
	require.Len(t, h, 1)
	assert.Equal(t, entity.ActionDoubleClick, h[0].Action)
	assert.Equal(t, &entity.Point{X: 1, Y: 2}, h[0].Coordinates)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), h[0].Timestamp)

	d.Reset()
	assert.Empty(t, d.History())
}

func TestCriticalGate(t *testing.T) {
	gate := NewCriticalGate([]string{"delete", "format", "shutdown"})

	critical, matched := gate.Evaluate(click(t, 1, 1, 0.9, "Click the DELETE button"))
	assert.True(t, critical)
	assert.Equal(t, []string{"delete"}, matched)

	critical, matched = gate.Evaluate(click(t, 1, 1, 0.9, "Click submit"))
	assert.False(t, critical)
	assert.Empty(t, matched)
}

func TestCriticalGate_NormalizesKeywords(t *testing.T) {
	gate := NewCriticalGate([]string{" Delete ", "delete", "", "WIPE"})
	assert.Equal(t, []string{"delete", "wipe"}, gate.Keywords())

	_, matched := gate.Evaluate(click(t, 1, 1, 0.9, "wipe then delete"))
	assert.Equal(t, []string{"delete", "wipe"}, matched)
}

func TestCriticalGate_SystemArea(t *testing.T) {
	gate := NewCriticalGate(nil)

	rightClick, err := entity.NewNavigationResult(entity.NavigationParams{
		Action:      entity.ActionRightClick,
		Coordinates: &entity.Point{X: 1900, Y: 1070},
		Confidence:  0.8,
		Reasoning:   "Open the Taskbar context menu",
	})
	require.NoError(t, err)

	critical, matched := gate.Evaluate(rightClick)
	assert.True(t, critical)
	assert.Equal(t, []string{SystemAreaMarker}, matched)

	critical, _ = gate.Evaluate(click(t, 1900, 1070, 0.8, "Open the taskbar"))
	assert.False(t, critical, "left clicks are not system-area critical")
}

func TestCheckIterationLimit(t *testing.T) {
	for _, tt := range []struct {
		current, max int
		reached      bool
	}{
		{5, 10, false},
		{10, 10, true},
		{15, 10, true},
	} {
		t.Run(fmt.Sprintf("%d_of_%d", tt.current, tt.max), func(t *testing.T) {
			reached, warning := CheckIterationLimit(tt.current, tt.max)
			assert.Equal(t, tt.reached, reached)
			if tt.reached {
				assert.NotEmpty(t, warning)
			} else {
				assert.Empty(t, warning)
			}
		})
	}
}

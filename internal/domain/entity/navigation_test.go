package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNavigationResult_Valid(t *testing.T) {
	r, err := NewNavigationResult(NavigationParams{
		Action:           ActionClick,
		Coordinates:      &Point{X: 10, Y: 20},
		Confidence:       0.8,
		Reasoning:        "Click the OK button",
		RequiresFollowup: true,
	})
	require.NoError(t, err)

	assert.Equal(t, ActionClick, r.Action())
	p, ok := r.Coordinates()
	assert.True(t, ok)
	assert.Equal(t, Point{X: 10, Y: 20}, p)
	assert.Equal(t, 0.8, r.Confidence())
	assert.True(t, r.RequiresFollowup())
}

func TestNewNavigationResult_ConfidenceBounds(t *testing.T) {
	for _, c := range []float64{0, 0.5, 1} {
		_, err := NewNavigationResult(NavigationParams{Action: ActionNoAction, Confidence: c})
		assert.NoError(t, err, "confidence %v", c)
	}

	for _, c := range []float64{1.5, -0.1, math.NaN(), math.Inf(1)} {
		_, err := NewNavigationResult(NavigationParams{Action: ActionNoAction, Confidence: c})
		assert.ErrorIs(t, err, ErrInvalidResult, "confidence %v", c)
	}
}

func TestNewNavigationResult_ClickNeedsCoordinates(t *testing.T) {
	for _, kind := range []ActionKind{ActionClick, ActionDoubleClick, ActionRightClick} {
		_, err := NewNavigationResult(NavigationParams{Action: kind, Confidence: 0.9})
		assert.ErrorIs(t, err, ErrInvalidResult, kind.String())
	}
}

func TestNewNavigationResult_TypeNeedsText(t *testing.T) {
	_, err := NewNavigationResult(NavigationParams{Action: ActionType, Confidence: 0.9})
	assert.ErrorIs(t, err, ErrInvalidResult)

	r, err := NewNavigationResult(NavigationParams{Action: ActionType, Confidence: 0.9, TextToType: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", r.TextToType())
	assert.False(t, r.HasCoordinates())
}

func TestNavigationResult_CoordinatesAreCopied(t *testing.T) {
	p := &Point{X: 1, Y: 2}
	r, err := NewNavigationResult(NavigationParams{Action: ActionClick, Coordinates: p, Confidence: 1})
	require.NoError(t, err)

	p.X = 99
	got, _ := r.Coordinates()
	assert.Equal(t, 1, got.X)

	ptr := r.CoordinatesPtr()
	ptr.Y = 77
	got, _ = r.Coordinates()
	assert.Equal(t, 2, got.Y)
}

func TestNavigationResult_Downgrade(t *testing.T) {
	r, err := NewNavigationResult(NavigationParams{
		Action:      ActionClick,
		Coordinates: &Point{X: 5, Y: 5},
		Confidence:  0.3,
		Reasoning:   "Maybe the menu",
	})
	require.NoError(t, err)

	d := r.Downgrade("[low confidence]")
	assert.Equal(t, ActionNoAction, d.Action())
	assert.False(t, d.HasCoordinates())
	assert.Zero(t, d.Confidence())
	assert.Equal(t, "Maybe the menu [low confidence]", d.Reasoning())
}

func TestActionKind_TextRoundTrip(t *testing.T) {
	for _, kind := range AllActions() {
		text, err := kind.MarshalText()
		require.NoError(t, err)

		var back ActionKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, kind, back)
	}

	_, err := ParseActionKind("scroll")
	assert.Error(t, err)
}

func TestActionKind_Executable(t *testing.T) {
	want := map[ActionKind]bool{
		ActionNoAction:    false,
		ActionClick:       true,
		ActionDoubleClick: true,
		ActionRightClick:  true,
		ActionType:        true,
		ActionComplete:    false,
	}
	for _, a := range AllActions() {
		assert.Equal(t, want[a], a.Executable(), a.String())
	}
}

func TestScreenSize_Contains(t *testing.T) {
	s := ScreenSize{Width: 1920, Height: 1080}
	assert.True(t, s.Contains(Point{X: 0, Y: 0}))
	assert.True(t, s.Contains(Point{X: 1920, Y: 1080}))
	assert.False(t, s.Contains(Point{X: 1921, Y: 10}))
	assert.False(t, s.Contains(Point{X: 10, Y: -1}))
}

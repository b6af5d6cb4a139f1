package entity

import (
	"encoding/json"
	"fmt"
)

// Point is a screen position in screenshot pixels. It is serialized as [x,y].
type Point struct {
	X int
	Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("point must be an [x,y] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have exactly 2 components, got %d", len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// PointPtr returns a pointer to a copy of p.
func PointPtr(p Point) *Point {
	return &p
}

type ScreenSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (s ScreenSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Contains reports whether p lies in [0,Width]x[0,Height].
func (s ScreenSize) Contains(p Point) bool {
	return p.X >= 0 && p.X <= s.Width && p.Y >= 0 && p.Y <= s.Height
}

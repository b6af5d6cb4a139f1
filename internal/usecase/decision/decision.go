// Package decision turns free-form oracle text into typed decisions.
package decision

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	json "github.com/json-iterator/go"

	"vision-navigator/internal/domain/entity"
)

const (
	fence      = "```"
	excerptMax = 200
)

// ParseError describes oracle output that could not be turned into a decision.
type ParseError struct {
	Detail  string
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(raw, detail string, err error) *ParseError {
	return &ParseError{Detail: detail, Excerpt: excerpt(raw), Err: err}
}

// wireDecision is the JSON contract. Pointer fields tell absent or null
// values apart from zero values.
type wireDecision struct {
	Action           *string   `json:"action"`
	Coordinates      []float64 `json:"coordinates"`
	Confidence       *float64  `json:"confidence"`
	Reasoning        *string   `json:"reasoning"`
	RequiresFollowup *bool     `json:"requires_followup"`
	TextToType       *string   `json:"text_to_type"`
}

// defaults holds the value used for every field the oracle leaves out.
var defaults = struct {
	Action           string
	Confidence       float64
	Reasoning        string
	RequiresFollowup bool
	TextToType       string
}{
	Action:     entity.ActionNoAction.String(),
	Confidence: 0,
	Reasoning:  "No reasoning provided",
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// MaxCoordinate bounds the magnitude of a decoded coordinate so it always fits an int.
const MaxCoordinate = math.MaxInt32

// Decode strictly decodes one navigation decision. Any failure is a *ParseError.
func Decode(raw string) (entity.NavigationResult, error) {
	var w wireDecision
	if err := decodeObject(raw, &w); err != nil {
		return entity.NavigationResult{}, err
	}

	action := orDefault(w.Action, defaults.Action)
	reasoning := orDefault(w.Reasoning, defaults.Reasoning)
	if strings.TrimSpace(reasoning) == "" {
		reasoning = defaults.Reasoning
	}

	kind, err := entity.ParseActionKind(normalizeAction(action))
	if err != nil {
		return entity.NavigationResult{}, newParseError(raw, "unknown action", err)
	}

	var coords *entity.Point
	if w.Coordinates != nil {
		if len(w.Coordinates) != 2 {
			return entity.NavigationResult{}, newParseError(raw,
				fmt.Sprintf("coordinates must be [x, y], got %d values", len(w.Coordinates)), nil)
		}
		for _, c := range w.Coordinates {
			if math.IsNaN(c) || math.IsInf(c, 0) || math.Abs(c) > MaxCoordinate {
				return entity.NavigationResult{}, newParseError(raw,
					fmt.Sprintf("coordinate %v outside [-%d, %d]", c, MaxCoordinate, MaxCoordinate), nil)
			}
		}
		coords = &entity.Point{X: int(math.Round(w.Coordinates[0])), Y: int(math.Round(w.Coordinates[1]))}
	}

	result, err := entity.NewNavigationResult(entity.NavigationParams{
		Action:           kind,
		Coordinates:      coords,
		Confidence:       orDefault(w.Confidence, defaults.Confidence),
		Reasoning:        reasoning,
		RequiresFollowup: orDefault(w.RequiresFollowup, defaults.RequiresFollowup),
		TextToType:       orDefault(w.TextToType, defaults.TextToType),
	})
	if err != nil {
		return entity.NavigationResult{}, newParseError(raw, "decision violates result invariants", err)
	}
	return result, nil
}

// Parse never fails: undecodable output becomes a NoAction that names the problem.
func Parse(raw string) entity.NavigationResult {
	result, err := Decode(raw)
	if err != nil {
		return Fallback(err)
	}
	return result
}

// Fallback builds the safe result for a decode error.
func Fallback(err error) entity.NavigationResult {
	var pe *ParseError
	if errors.As(err, &pe) {
		return entity.NoAction(fmt.Sprintf("Failed to parse oracle response: %s; excerpt: %s", pe.Error(), pe.Excerpt))
	}
	return entity.NoAction(fmt.Sprintf("Failed to parse oracle response: %v", err))
}

// ParseVerification decodes a verify-outcome answer. On failure the returned
// value reports no success with zero confidence.
func ParseVerification(raw string) (entity.Verification, error) {
	var v entity.Verification
	if err := decodeObject(raw, &v); err != nil {
		return failedVerification(err), err
	}
	if math.IsNaN(v.Confidence) || v.Confidence < 0 || v.Confidence > 1 {
		err := newParseError(raw, fmt.Sprintf("confidence %v outside [0,1]", v.Confidence), nil)
		return failedVerification(err), err
	}
	return v, nil
}

func failedVerification(err error) entity.Verification {
	return entity.Verification{
		Success:    false,
		Confidence: 0,
		Reasoning:  fmt.Sprintf("Failed to parse verification response: %v", err),
	}
}

// ParseContinuation decodes a should-continue answer. On failure the advice is to stop.
func ParseContinuation(raw string) (entity.ContinuationAdvice, error) {
	var a entity.ContinuationAdvice
	if err := decodeObject(raw, &a); err != nil {
		return entity.ContinuationAdvice{
			Continue:  false,
			Reasoning: fmt.Sprintf("Failed to parse continuation response: %v", err),
		}, err
	}
	return a, nil
}

func decodeObject(raw string, into any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return newParseError(raw, "empty response", nil)
	}

	text = stripFence(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return newParseError(raw, "no JSON object found", nil)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), into); err != nil {
		return newParseError(raw, "invalid JSON", err)
	}
	return nil
}

// stripFence returns the body between the first and last ``` markers, without
// a language tag. Text with fewer than two markers is returned unchanged.
func stripFence(text string) string {
	first := strings.Index(text, fence)
	last := strings.LastIndex(text, fence)
	if first == -1 || last <= first {
		return text
	}

	body := text[first+len(fence) : last]
	if nl := strings.IndexByte(body, '\n'); nl != -1 {
		tag := strings.TrimSpace(body[:nl])
		if tag != "" && !strings.ContainsAny(tag, "{}[]\"") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

func normalizeAction(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func excerpt(raw string) string {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) <= excerptMax {
		return s
	}
	runes := []rune(s)
	return string(runes[:excerptMax-3]) + "..."
}

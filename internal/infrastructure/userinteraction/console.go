package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

// Mode decides how critical actions are confirmed.
type Mode string

const (
	ModePrompt Mode = "prompt"
	ModeAllow  Mode = "allow"
	ModeDeny   Mode = "deny"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePrompt, ModeAllow, ModeDeny:
		return m, nil
	}
	return "", fmt.Errorf("unknown confirmation mode %q", s)
}

// ConsoleUserInteraction prints progress and asks the operator to confirm
// critical actions. In allow and deny modes it answers without reading input.
type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer
	mode   Mode
}

func NewConsoleUserInteraction(in io.Reader, out io.Writer, mode Mode) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
		mode:   mode,
	}
}

func (u *ConsoleUserInteraction) Confirm(ctx context.Context, result entity.NavigationResult, matched []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	warn := color.New(color.FgYellow, color.Bold)
	warn.Fprintf(u.out, "\n⚠ Critical action: %s\n", result)
	dim := color.New(color.Faint)
	dim.Fprintf(u.out, "   Matched: %s\n", strings.Join(matched, ", "))
	dim.Fprintf(u.out, "   Reasoning: %s\n", truncate(result.Reasoning(), 300))

	switch u.mode {
	case ModeAllow:
		color.New(color.FgGreen).Fprintln(u.out, "   Auto-approved")
		return true, nil
	case ModeDeny:
		color.New(color.FgRed).Fprintln(u.out, "   Auto-denied")
		return false, nil
	case ModePrompt:
	}

	fmt.Fprint(u.out, "Execute this action? [y/N] ")
	answer, err := u.reader.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return parseAnswer(answer), nil
}

func (u *ConsoleUserInteraction) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "\n━━━ Iteration %d/%d ━━━\n", iteration, maxIterations)
}

func (u *ConsoleUserInteraction) ShowDecision(ctx context.Context, result entity.NavigationResult) {
	icon, paint := actionDisplay(result.Action())
	paint.Fprintf(u.out, "%s %s\n", icon, result)
	if r := result.Reasoning(); r != "" {
		color.New(color.Faint).Fprintf(u.out, "   %s\n", truncate(r, 300))
	}
}

func (u *ConsoleUserInteraction) ShowWarning(ctx context.Context, message string) {
	color.New(color.FgRed).Fprintf(u.out, "❌ %s\n", message)
}

func actionDisplay(action entity.ActionKind) (string, *color.Color) {
	switch action {
	case entity.ActionClick, entity.ActionDoubleClick, entity.ActionRightClick:
		return "🖱️", color.New(color.FgYellow, color.Bold)
	case entity.ActionType:
		return "✏️", color.New(color.FgYellow, color.Bold)
	case entity.ActionComplete:
		return "✓", color.New(color.FgGreen, color.Bold)
	case entity.ActionNoAction:
		return "…", color.New(color.Faint)
	}
	return "🔧", color.New(color.Reset)
}

func parseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// truncate keeps at most maxLen runes of s.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

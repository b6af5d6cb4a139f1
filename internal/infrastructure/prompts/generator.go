package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"vision-navigator/internal/domain/entity"
)

type NavigationPromptData struct {
	Task    string
	Mouse   entity.Point
	Screen  entity.ScreenSize
	Actions []string
}

type VerificationPromptData struct {
	Expected string
}

type ContinuationPromptData struct {
	Goal    string
	History []entity.ActionHistoryEntry
}

// BuildNavigationPrompt renders the per-iteration instruction. Output depends only on its arguments.
func BuildNavigationPrompt(task string, mouse entity.Point, screen entity.ScreenSize) string {
	kinds := entity.AllActions()
	actions := make([]string, 0, len(kinds))
	for _, k := range kinds {
		actions = append(actions, k.String())
	}

	return mustRender(navigationTmpl, NavigationPromptData{
		Task:    task,
		Mouse:   mouse,
		Screen:  screen,
		Actions: actions,
	})
}

func BuildVerificationPrompt(expected string) string {
	return mustRender(verificationTmpl, VerificationPromptData{Expected: expected})
}

// BuildContinuationPrompt lists history oldest first.
func BuildContinuationPrompt(goal string, history []entity.ActionHistoryEntry) string {
	return mustRender(continuationTmpl, ContinuationPromptData{Goal: goal, History: history})
}

// The templates are parsed at init and the data types are fixed, so execution
// can only fail on a broken template, which is a programming error.
func mustRender(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("prompts: render %s: %v", tmpl.Name(), err))
	}
	return buf.String()
}

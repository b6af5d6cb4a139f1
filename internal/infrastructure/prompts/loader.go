package prompts

import (
	_ "embed"
	"text/template"
)

//go:embed navigation.txt
var NavigationPrompt string

//go:embed verify.txt
var VerificationPrompt string

//go:embed continue.txt
var ContinuationPrompt string

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var (
	navigationTmpl   = template.Must(template.New("navigation").Funcs(funcs).Parse(NavigationPrompt))
	verificationTmpl = template.Must(template.New("verify").Funcs(funcs).Parse(VerificationPrompt))
	continuationTmpl = template.Must(template.New("continue").Funcs(funcs).Parse(ContinuationPrompt))
)

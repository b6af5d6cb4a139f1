package guard

import (
	"strings"

	"vision-navigator/internal/domain/entity"
)

// SystemAreaMarker is reported when a right click targets operating system chrome.
const SystemAreaMarker = "system_area"

var systemAreaTerms = []string{"system", "taskbar", "tray"}

// DefaultCriticalKeywords are matched against the oracle's reasoning.
func DefaultCriticalKeywords() []string {
	return []string{"delete", "format", "shutdown", "remove", "erase", "destroy", "wipe"}
}

// CriticalGate flags decisions whose reasoning mentions a sensitive keyword.
type CriticalGate struct {
	keywords []string
}

// NewCriticalGate lower-cases and de-duplicates keywords, keeping their order.
func NewCriticalGate(keywords []string) *CriticalGate {
	seen := make(map[string]struct{}, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		normalized = append(normalized, k)
	}
	return &CriticalGate{keywords: normalized}
}

func (g *CriticalGate) Keywords() []string {
	return append([]string(nil), g.keywords...)
}

// Evaluate returns whether result needs confirmation and the keywords that matched.
func (g *CriticalGate) Evaluate(result entity.NavigationResult) (bool, []string) {
	reasoning := strings.ToLower(result.Reasoning())

	var matched []string
	for _, k := range g.keywords {
		if strings.Contains(reasoning, k) {
			matched = append(matched, k)
		}
	}

	if result.Action() == entity.ActionRightClick {
		for _, term := range systemAreaTerms {
			if strings.Contains(reasoning, term) {
				matched = append(matched, SystemAreaMarker)
				break
			}
		}
	}

	return len(matched) > 0, matched
}

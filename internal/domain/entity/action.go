package entity

import "fmt"

// ActionKind is the closed set of actions the navigator can decide on.
// The zero value is ActionNoAction.
type ActionKind uint8

const (
	ActionNoAction ActionKind = iota
	ActionClick
	ActionDoubleClick
	ActionRightClick
	ActionType
	ActionComplete
)

var actionNames = [...]string{
	ActionNoAction:    "no_action",
	ActionClick:       "click",
	ActionDoubleClick: "double_click",
	ActionRightClick:  "right_click",
	ActionType:        "type",
	ActionComplete:    "complete",
}

// AllActions lists every kind in declaration order.
func AllActions() []ActionKind {
	return []ActionKind{
		ActionNoAction,
		ActionClick,
		ActionDoubleClick,
		ActionRightClick,
		ActionType,
		ActionComplete,
	}
}

func (a ActionKind) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseActionKind maps a wire name to its kind. Matching is exact.
func ParseActionKind(s string) (ActionKind, error) {
	for i, name := range actionNames {
		if name == s {
			return ActionKind(i), nil
		}
	}
	return ActionNoAction, fmt.Errorf("unknown action %q", s)
}

func (a ActionKind) MarshalText() ([]byte, error) {
	if int(a) >= len(actionNames) {
		return nil, fmt.Errorf("invalid action kind %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}

// IsClick reports whether the action is one of the pointer click variants.
func (a ActionKind) IsClick() bool {
	switch a {
	case ActionClick, ActionDoubleClick, ActionRightClick:
		return true
	case ActionNoAction, ActionType, ActionComplete:
		return false
	}
	return false
}

// NeedsCoordinates reports whether a result of this kind must carry a target point.
func (a ActionKind) NeedsCoordinates() bool { return a.IsClick() }

// Executable reports whether the action has a physical effect on the screen.
func (a ActionKind) Executable() bool {
	switch a {
	case ActionClick, ActionDoubleClick, ActionRightClick, ActionType:
		return true
	case ActionNoAction, ActionComplete:
		return false
	}
	return false
}

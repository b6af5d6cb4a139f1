package guard

import "fmt"

// CheckIterationLimit reports whether current has reached limit, with a warning when it has.
func CheckIterationLimit(current, limit int) (bool, string) {
	if current < limit {
		return false, ""
	}
	return true, fmt.Sprintf("Iteration limit reached: %d of %d iterations used without completing the task", current, limit)
}

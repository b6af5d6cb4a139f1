package entity

// Verification is the oracle's judgement of a before/after screenshot pair.
type Verification struct {
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ContinuationAdvice tells the caller whether the overall goal still needs work.
type ContinuationAdvice struct {
	Continue    bool   `json:"should_continue"`
	NextSubtask string `json:"next_subtask"`
	Reasoning   string `json:"reasoning"`
}

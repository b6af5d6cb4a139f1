package entity

import "time"

type ActionHistoryEntry struct {
	Action      ActionKind
	Coordinates *Point
	Timestamp   time.Time
}

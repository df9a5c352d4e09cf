// Package unit defines the domain model for the reconciliation engine: file
// uploads, lifecycle stages, the canonical per-unit record with its per-field
// merge clocks, the append-only lifecycle event, and the fee model.
package unit

// Stage is a point in the physical unit lifecycle. Stages are strictly
// ordered; the event history for a unit must reconstruct a monotonic
// progression through them.
type Stage int

const (
	StageNone Stage = iota
	StageReceived
	StageCheckedIn
	StageTested
	StageListed
	StageSold
)

var stageNames = map[Stage]string{
	StageNone:      "None",
	StageReceived:  "Received",
	StageCheckedIn: "CheckedIn",
	StageTested:    "Tested",
	StageListed:    "Listed",
	StageSold:      "Sold",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "None"
}

// Before reports whether s precedes other in the lifecycle order.
func (s Stage) Before(other Stage) bool { return s < other }

// Stages lists all real stages in lifecycle order.
func Stages() []Stage {
	return []Stage{StageReceived, StageCheckedIn, StageTested, StageListed, StageSold}
}

// ParseStage maps a stage name back to its Stage. Unrecognized names map to
// StageNone.
func ParseStage(name string) Stage {
	for s, n := range stageNames {
		if n == name {
			return s
		}
	}
	return StageNone
}

package campaign

// Phase is the coarse stage a campaign is in.
type Phase string

const (
	// PhaseInit is before Start.
	PhaseInit Phase = "init"
	// PhaseRampUp is while the initial sessions are still being launched.
	PhaseRampUp Phase = "ramp-up"
	// PhaseSteady is after the ramp while time remains; finished sessions
	// are replaced.
	PhaseSteady Phase = "steady"
	// PhaseRampDown starts once less than a second remains; sessions in
	// flight finish without replacement.
	PhaseRampDown Phase = "ramp-down"
	// PhaseDone is after every slot has drained.
	PhaseDone Phase = "done"
)

func (p Phase) String() string {
	return string(p)
}

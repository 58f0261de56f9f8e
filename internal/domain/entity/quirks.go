package entity

// UnboundedRewind is the MaxRewindSeconds sentinel meaning "search the whole
// reported length".
const UnboundedRewind = -1.0

// QuirksState is the per-file degraded-trust flag set. It is created fresh
// for every input file and threaded explicitly through the pipeline; nothing
// in the service keeps package-level mutable state.
type QuirksState struct {
	Enabled            bool
	MaxRewindSeconds   float64
	ProbeStepSeconds   float64
	RewindLimitReached bool
}

// NewQuirksState returns a reset QuirksState for one file.
func NewQuirksState(maxRewind, probeStep float64) *QuirksState {
	if probeStep <= 0 {
		probeStep = 0.5
	}
	return &QuirksState{
		MaxRewindSeconds: maxRewind,
		ProbeStepSeconds: probeStep,
	}
}

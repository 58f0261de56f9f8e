package entity

// Decision names a fallback taken while reconciling identifier output.
// Every substitution the engine makes is reported as one of these, so both
// the logs and the tests can observe what happened instead of inferring it
// from the final record.
type Decision string

const (
	DecisionFrameRateFromSecondary  Decision = "framerate_from_secondary"
	DecisionChannelsFromSecondary   Decision = "channels_from_secondary"
	DecisionAspectFromSecondary     Decision = "aspect_from_secondary"
	DecisionDimensionsFromSecondary Decision = "dimensions_from_secondary"
	DecisionCodecFromSecondary      Decision = "codec_from_secondary"
	DecisionForcedInconsistent      Decision = "forced_inconsistent"
	DecisionQuirksOnDelta           Decision = "quirks_on_duration_delta"
	DecisionQuirksOnFrameRate       Decision = "quirks_on_suspicious_framerate"
	DecisionQuirksOnProbeFailure    Decision = "quirks_on_end_unreachable"
	DecisionDurationMeasured        Decision = "duration_from_safe_measure"
)

package port

import "context"

// Capturer drives one external decoder to produce still frames. Exactly one
// implementation is selected at startup into a typed value; nothing dispatches
// on adapter names at runtime.
type Capturer interface {
	// Capture seeks to seconds and writes one still image to outPath.
	// Implementations must not leave a partial file behind on failure.
	Capture(ctx context.Context, path string, seconds float64, outPath string) error

	// Probe tests whether seconds is reachable, at reduced resolution, and
	// discards the output.
	Probe(ctx context.Context, path string, seconds float64) error

	// MillisecondPrecision reports whether the decoder honors fractional
	// seek positions. Adapters without it are keyed and scheduled on whole
	// seconds.
	MillisecondPrecision() bool
}

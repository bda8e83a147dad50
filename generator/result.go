package generator

// Result is the outcome of one generation. Artifact is always usable; when
// the remote model failed it holds fallback content and Err says why.
type Result struct {
	Artifact Artifact
	Err      error
	// Attempts counts remote calls made, zero when none was needed.
	Attempts int
}

// Degraded reports whether the artifact came from the local fallback.
func (r Result) Degraded() bool {
	return r.Artifact.Fallback
}

// Unwrap returns the artifact together with the remote error, for callers
// that would rather fail than show fallback content.
func (r Result) Unwrap() (Artifact, error) {
	return r.Artifact, r.Err
}

// Warning is a short user-facing note for degraded results.
func (r Result) Warning() string {
	if !r.Degraded() {
		return ""
	}
	return "The AI service is unavailable; showing template content instead."
}

package compile

// Kind classifies a failed step of the compile pipeline.
type Kind string

const (
	// KindInputError: no active document; no I/O was performed.
	KindInputError Kind = "input_error"
	// KindIOError: persisting or staging the source failed.
	KindIOError Kind = "io_error"
	// KindToolUnavailable: the compiler could not be launched or timed out.
	KindToolUnavailable Kind = "tool_unavailable"
	// KindCompileFailure: the compiler exited non-zero; Diagnostic carries
	// the log artifact contents when present.
	KindCompileFailure Kind = "compile_failure"
	// KindArtifactMissing: the compiler exited zero but produced no artifact.
	KindArtifactMissing Kind = "artifact_missing"
	// KindRenderError: the artifact could not be rasterized. Reported
	// separately and never invalidates a compile success.
	KindRenderError Kind = "render_error"
)

// Result is the tagged outcome of one compile cycle.
type Result struct {
	OK           bool   `json:"ok"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Kind         Kind   `json:"kind,omitempty"`
	Diagnostic   string `json:"diagnostic,omitempty"`
}

// Success tags a completed compile with its artifact path.
func Success(artifactPath string) Result {
	return Result{OK: true, ArtifactPath: artifactPath}
}

// Failure tags a failed step with its classification and diagnostic text.
func Failure(kind Kind, diagnostic string) Result {
	return Result{Kind: kind, Diagnostic: diagnostic}
}

// Outcome returns "success" or the failure kind, for metrics and the journal.
func (r Result) Outcome() string {
	if r.OK {
		return "success"
	}
	return string(r.Kind)
}

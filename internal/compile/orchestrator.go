// Package compile persists the document buffer, stages it into the build
// workspace, invokes the external LaTeX compiler, classifies the outcome,
// and hands successful artifacts to the page renderer.
package compile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texpreview/internal/logfields"
	"git.home.luguber.info/inful/texpreview/internal/metrics"
	"git.home.luguber.info/inful/texpreview/internal/render"
	"git.home.luguber.info/inful/texpreview/internal/session"
)

// Fixed names inside the build workspace. The compiler derives the log and
// artifact names from the staged file's base name.
const (
	StagedName   = "texpreview.tex"
	LogName      = "texpreview.log"
	ArtifactName = "texpreview.pdf"
)

// Outcome bundles everything one compile cycle produced.
type Outcome struct {
	RequestID string
	Compile   Result
	// Page is the rendered first page; nil when the compile failed or
	// rasterization failed.
	Page *render.Page
	// Render is non-nil only when the compile succeeded but rasterization
	// failed; it never invalidates Compile.
	Render *Result
	// Superseded reports that a newer request arrived while this cycle ran;
	// callers must not surface a superseded outcome as the latest result.
	Superseded bool
	StartedAt  time.Time
	Duration   time.Duration
}

// Orchestrator runs compile cycles against the session's build workspace.
// Workspace access is single-flight: the mutex serializes subprocess
// invocations, and the generation counter lets the newest request win for
// presentation purposes while superseded cycles are dropped, not queued.
type Orchestrator struct {
	tool     string
	timeout  time.Duration
	renderer render.Renderer
	recorder metrics.Recorder

	mu         sync.Mutex
	generation atomic.Uint64
}

// NewOrchestrator wires the external tool invocation and the renderer.
func NewOrchestrator(tool string, timeout time.Duration, renderer render.Renderer, recorder metrics.Recorder) *Orchestrator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		tool:     tool,
		timeout:  timeout,
		renderer: renderer,
		recorder: recorder,
	}
}

// Run executes one full compile cycle: persist, stage, invoke, classify,
// render. Every step is idempotent; the source file is rewritten on every
// cycle regardless of whether the buffer changed since the last write, so
// the on-disk document is always consistent with the buffer.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Context) Outcome {
	out := Outcome{RequestID: uuid.NewString(), StartedAt: time.Now()}

	if sess == nil || sess.Path() == "" {
		out.Compile = Failure(KindInputError, "no document is currently open")
		o.recorder.IncCompileOutcome(out.Compile.Outcome())
		return out
	}

	gen := o.generation.Add(1)

	o.mu.Lock()
	out.Compile, out.Page, out.Render = o.runLocked(ctx, sess, out.RequestID)
	o.mu.Unlock()

	out.Duration = time.Since(out.StartedAt)
	out.Superseded = o.generation.Load() != gen

	o.recorder.ObserveCompileDuration(out.Duration)
	o.recorder.IncCompileOutcome(out.Compile.Outcome())
	if out.Superseded {
		o.recorder.IncSuperseded()
	}

	slog.Info("Compile cycle finished",
		logfields.RequestID(out.RequestID),
		logfields.Kind(out.Compile.Outcome()),
		logfields.DurationMS(float64(out.Duration.Milliseconds())),
		slog.Bool("superseded", out.Superseded))

	return out
}

func (o *Orchestrator) runLocked(ctx context.Context, sess *session.Context, requestID string) (Result, *render.Page, *Result) {
	sourcePath := sess.Path()
	buildDir := sess.BuildDir()

	// Step 1: overwrite the source with the buffer verbatim.
	text := sess.Text()
	if err := os.WriteFile(sourcePath, []byte(text), 0o644); err != nil {
		return Failure(KindIOError, "persist source: "+err.Error()), nil, nil
	}
	sess.MarkClean()

	// Step 2: copy the just-written source into the build workspace.
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return Failure(KindIOError, "read source for staging: "+err.Error()), nil, nil
	}
	stagedPath := filepath.Join(buildDir, StagedName)
	if err := os.WriteFile(stagedPath, data, 0o644); err != nil {
		return Failure(KindIOError, "stage source: "+err.Error()), nil, nil
	}

	// Step 3: invoke the compiler, cwd = build workspace, bounded timeout.
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, o.tool, "-interaction=nonstopmode", StagedName)
	cmd.Dir = buildDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Invoking compiler",
		logfields.RequestID(requestID),
		logfields.Tool(o.tool),
		logfields.Path(stagedPath))

	runErr := cmd.Run()

	// Step 4: classify.
	if cctx.Err() == context.DeadlineExceeded {
		return Failure(KindToolUnavailable, "compiler timed out after "+o.timeout.String()), nil, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Failure(KindCompileFailure, o.readLog(buildDir)), nil, nil
		}
		// Launch failures: executable missing, not executable, etc.
		return Failure(KindToolUnavailable, runErr.Error()), nil, nil
	}

	artifactPath := filepath.Join(buildDir, ArtifactName)
	if _, err := os.Stat(artifactPath); err != nil {
		return Failure(KindArtifactMissing, "compiler exited zero but produced no "+ArtifactName), nil, nil
	}

	result := Success(artifactPath)

	// Step 5: render page one. A decode failure is reported separately and
	// does not invalidate the compile success.
	renderStart := time.Now()
	page, renderErr := o.renderer.FirstPage(artifactPath)
	o.recorder.ObserveRenderDuration(time.Since(renderStart))
	if renderErr != nil {
		slog.Warn("Preview render failed",
			logfields.RequestID(requestID),
			logfields.Path(artifactPath),
			logfields.Error(renderErr))
		failure := Failure(KindRenderError, renderErr.Error())
		return result, nil, &failure
	}

	return result, page, nil
}

// readLog returns the compiler log contents, or empty when absent.
func (o *Orchestrator) readLog(buildDir string) string {
	data, err := os.ReadFile(filepath.Join(buildDir, LogName))
	if err != nil {
		return ""
	}
	return string(data)
}

package events

import (
	"time"

	"git.home.luguber.info/inful/texpreview/internal/compile"
	"git.home.luguber.info/inful/texpreview/internal/outline"
)

// PipelineTriggered is emitted by the edit debouncer once the quiet window
// elapses, and by explicit compile-now requests. Consumers run one outline
// rebuild followed by one compile cycle.
type PipelineTriggered struct {
	TriggeredAt time.Time
	// NotifyCount is the number of coalesced edit notifications; 1 for
	// explicit requests.
	NotifyCount int
	FirstNotify time.Time
	LastNotify  time.Time
	Reason      string // "quiet", "max_delay", "manual", "load", "watch"
}

// OutlineRebuilt carries the freshly extracted heading tree. Within one
// triggered invocation it is always published before CompileFinished.
type OutlineRebuilt struct {
	Root     *outline.Node
	Headings int
	At       time.Time
}

// CompileFinished carries the surfaced outcome of a compile cycle.
// Superseded outcomes are never published.
type CompileFinished struct {
	Outcome compile.Outcome
	At      time.Time
}

// DocumentLoaded is emitted when a session is created for a new document.
type DocumentLoaded struct {
	Path string
	At   time.Time
}

// DocumentClosed is emitted when the active session is cleared.
type DocumentClosed struct {
	Path string
	At   time.Time
}

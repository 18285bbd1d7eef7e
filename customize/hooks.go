package customize

import (
	"context"
	"fmt"
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/response"
	"github.com/samber/lo"
)

// HookType is the pipeline phase a hook runs in.
type HookType int

const (
	// PreRequest hooks run before the transport call and may edit the request.
	PreRequest HookType = iota
	// PostResponse hooks run after a successful call and see the processed response.
	PostResponse
	// OnError hooks run when the transport fails or a hook aborts.
	OnError
)

func (t HookType) String() string {
	switch t {
	case PreRequest:
		return "pre_request"
	case PostResponse:
		return "post_response"
	case OnError:
		return "on_error"
	default:
		return fmt.Sprintf("HookType(%d)", int(t))
	}
}

// Outcome tells the pipeline how to proceed after a hook returns.
type Outcome int

const (
	// Continue runs the next hook.
	Continue Outcome = iota
	// SkipPhase skips the remaining hooks of the current phase.
	SkipPhase
	// Abort stops the invocation. In PreRequest the transport call is skipped;
	// in PostResponse the response is discarded. Both route to OnError.
	// In OnError it behaves like SkipPhase.
	Abort
)

// HookFunc is a hook. A returned error is recorded as a HookFault and the hook
// is treated as a no-op.
type HookFunc func(ctx context.Context, hc *HookContext) (Outcome, error)

type hookRegistration struct {
	name  string
	phase HookType
	fn    HookFunc
}

// Hooks is an ordered list of hook registrations. Hooks of one phase run in
// the order they were added.
type Hooks struct {
	regs []hookRegistration
}

// NewHooks creates an empty registration list.
func NewHooks() *Hooks {
	return &Hooks{}
}

// On registers fn for phase under name.
func (h *Hooks) On(phase HookType, name string, fn HookFunc) *Hooks {
	if fn == nil {
		return h
	}
	h.regs = append(h.regs, hookRegistration{name: name, phase: phase, fn: fn})
	return h
}

// PreRequest registers a PreRequest hook.
func (h *Hooks) PreRequest(name string, fn HookFunc) *Hooks { return h.On(PreRequest, name, fn) }

// PostResponse registers a PostResponse hook.
func (h *Hooks) PostResponse(name string, fn HookFunc) *Hooks { return h.On(PostResponse, name, fn) }

// OnError registers an OnError hook.
func (h *Hooks) OnError(name string, fn HookFunc) *Hooks { return h.On(OnError, name, fn) }

// Extend appends every registration of other.
func (h *Hooks) Extend(other *Hooks) *Hooks {
	if other != nil {
		h.regs = append(h.regs, other.regs...)
	}
	return h
}

// Len returns the number of registrations.
func (h *Hooks) Len() int {
	if h == nil {
		return 0
	}
	return len(h.regs)
}

// Names returns the names registered for phase, in order.
func (h *Hooks) Names(phase HookType) []string {
	return lo.Map(h.forPhase(phase), func(r hookRegistration, _ int) string { return r.name })
}

func (h *Hooks) forPhase(phase HookType) []hookRegistration {
	if h == nil {
		return nil
	}
	return lo.Filter(h.regs, func(r hookRegistration, _ int) bool { return r.phase == phase })
}

// HookContext carries one invocation through the pipeline. Every hook of the
// invocation receives the same HookContext, so annotations written by one
// hook are visible to later ones.
type HookContext struct {
	// Phase is the phase currently running.
	Phase HookType
	// InvocationID uniquely identifies the invocation.
	InvocationID string
	// Model is the model identifier the invocation targets.
	Model string
	// Prompt is the text of the last user message.
	Prompt string
	// StartedAt is when the invocation began.
	StartedAt time.Time

	// Request is sent to the transport. PreRequest hooks may modify it.
	Request *llm.Request
	// Response is the transport's response, set from PostResponse on.
	Response *llm.Response
	// Processed is the handled response. PostResponse hooks may replace it.
	Processed response.ProcessedResponse
	// Err is the failure being handled, set in OnError.
	Err error

	annotations map[string]any
	abortReason string
}

// Set stores an annotation.
func (hc *HookContext) Set(key string, value any) {
	if hc.annotations == nil {
		hc.annotations = make(map[string]any)
	}
	hc.annotations[key] = value
}

// Get returns an annotation, or nil.
func (hc *HookContext) Get(key string) any {
	return hc.annotations[key]
}

// Lookup returns an annotation and whether it was set.
func (hc *HookContext) Lookup(key string) (any, bool) {
	v, ok := hc.annotations[key]
	return v, ok
}

// Annotations returns a copy of all annotations.
func (hc *HookContext) Annotations() map[string]any {
	out := make(map[string]any, len(hc.annotations))
	for k, v := range hc.annotations {
		out[k] = v
	}
	return out
}

// Abort records reason and returns the Abort outcome, for use as
// `return hc.Abort("prompt is empty")`.
func (hc *HookContext) Abort(reason string) (Outcome, error) {
	hc.abortReason = reason
	return Abort, nil
}

// Elapsed returns the time since the invocation started.
func (hc *HookContext) Elapsed() time.Duration {
	return time.Since(hc.StartedAt)
}

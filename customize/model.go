package customize

import (
	"context"
	"fmt"
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CustomizableModel binds a transport client, a model identifier, a
// ModelConfig and hooks. It is read-only after construction and safe for
// concurrent use; each invocation gets its own HookContext.
type CustomizableModel struct {
	client     llm.Client
	model      string
	config     ModelConfig
	hooks      *Hooks
	logger     zerolog.Logger
	classifier *response.Classifier
	handler    *response.Handler
	modelType  *response.ModelType
	streaming  bool
}

// Option configures a CustomizableModel.
type Option func(*CustomizableModel)

// WithHooks adds hook registrations. They are copied; later changes to h do
// not affect the model.
func WithHooks(h *Hooks) Option {
	return func(m *CustomizableModel) {
		m.hooks.Extend(h)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *CustomizableModel) {
		m.logger = logger
	}
}

// WithModelType declares the model's output type, skipping classification.
func WithModelType(t response.ModelType) Option {
	return func(m *CustomizableModel) {
		m.modelType = &t
	}
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *response.Classifier) Option {
	return func(m *CustomizableModel) {
		if c != nil {
			m.classifier = c
		}
	}
}

// WithHandler replaces the default response handler.
func WithHandler(h *response.Handler) Option {
	return func(m *CustomizableModel) {
		if h != nil {
			m.handler = h
		}
	}
}

// WithStreaming makes the transport call stream and collect chunks.
func WithStreaming(enabled bool) Option {
	return func(m *CustomizableModel) {
		m.streaming = enabled
	}
}

// NewCustomizableModel creates a CustomizableModel. The client is borrowed;
// cfg and hooks are owned by the model.
func NewCustomizableModel(client llm.Client, model string, cfg ModelConfig, opts ...Option) (*CustomizableModel, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}

	m := &CustomizableModel{
		client:     client,
		model:      model,
		config:     cfg.Merge(ModelConfig{}),
		hooks:      NewHooks(),
		logger:     zerolog.Nop(),
		classifier: response.NewClassifier(),
		handler:    response.NewHandler(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "customizableModel").Str("model", model).Logger()
	return m, nil
}

// Model returns the model identifier.
func (m *CustomizableModel) Model() string { return m.model }

// Config returns the model's configuration.
func (m *CustomizableModel) Config() ModelConfig { return m.config }

// ModelType returns the declared type, or the type classified from the
// model identifier.
func (m *CustomizableModel) ModelType() response.ModelType {
	if m.modelType != nil {
		return *m.modelType
	}
	return m.classifier.Classify(m.model)
}

// Invoke sends prompt as a single user message. See Chat.
func (m *CustomizableModel) Invoke(ctx context.Context, prompt string) (response.ProcessedResponse, []HookFault, error) {
	return m.Chat(ctx, []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)})
}

// Chat runs one invocation over a message history:
// PreRequest hooks, the transport call, then PostResponse hooks, or OnError
// hooks when the call fails or a hook aborts. Hook faults are returned
// alongside the result and never fail the invocation.
func (m *CustomizableModel) Chat(ctx context.Context, messages []llm.Message) (response.ProcessedResponse, []HookFault, error) {
	hc := m.newHookContext(messages)
	logger := m.logger.With().Str("invocation", hc.InvocationID).Logger()

	faults, abort := m.runPhase(ctx, PreRequest, hc, logger)
	if abort != nil {
		return m.fail(ctx, hc, abort, faults, logger)
	}
	req := hc.Request
	if req == nil {
		req = m.newRequest(messages)
	}

	resp, err := m.send(ctx, req)
	if err != nil {
		return m.fail(ctx, hc, err, faults, logger)
	}

	hc.Response = resp
	hc.Processed = m.process(resp)

	postFaults, abort := m.runPhase(ctx, PostResponse, hc, logger)
	faults = append(faults, postFaults...)
	if abort != nil {
		return m.fail(ctx, hc, abort, faults, logger)
	}

	logger.Debug().
		Str("type", hc.Processed.Type.String()).
		Bool("extracted", hc.Processed.Extracted).
		Bool("degraded", hc.Processed.Degraded).
		Int("faults", len(faults)).
		Dur("elapsed", hc.Elapsed()).
		Msg("Invocation complete")

	return hc.Processed, faults, nil
}

func (m *CustomizableModel) newHookContext(messages []llm.Message) *HookContext {
	hc := &HookContext{
		Phase:        PreRequest,
		InvocationID: uuid.NewString(),
		Model:        m.model,
		StartedAt:    time.Now(),
		Request:      m.newRequest(messages),
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			hc.Prompt = messages[i].Content
			break
		}
	}
	return hc
}

func (m *CustomizableModel) newRequest(messages []llm.Message) *llm.Request {
	return &llm.Request{
		Model:    m.model,
		Messages: append([]llm.Message(nil), messages...),
		System:   m.config.SystemPrompt(),
		Options:  m.config.Options(),
	}
}

func (m *CustomizableModel) send(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if !m.streaming {
		return m.client.Synchronous(ctx, req)
	}
	stream, err := m.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := llm.Collect(stream)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return resp, nil
}

// process handles the raw text by the declared or classified type. Reasoning
// the service returned separately is used when the text carried none.
func (m *CustomizableModel) process(resp *llm.Response) response.ProcessedResponse {
	var t response.ModelType
	if m.modelType != nil {
		t = *m.modelType
	} else {
		id := m.model
		if id == "" {
			id = resp.Model
		}
		t = m.classifier.ClassifySample(id, resp.Text)
	}
	return m.handler.Handle(resp.Text, t).WithReasoning(resp.Reasoning)
}

// fail runs OnError hooks and returns err.
func (m *CustomizableModel) fail(ctx context.Context, hc *HookContext, err error, faults []HookFault, logger zerolog.Logger) (response.ProcessedResponse, []HookFault, error) {
	hc.Err = err
	hc.Response = nil
	hc.Processed = response.ProcessedResponse{}
	m.runPhase(ctx, OnError, hc, logger)

	logger.Warn().
		Err(err).
		Bool("retryable", llm.IsRetryableError(err)).
		Int("faults", len(faults)).
		Dur("elapsed", hc.Elapsed()).
		Msg("Invocation failed")

	return response.ProcessedResponse{}, faults, err
}

// runPhase runs the hooks of phase in order. It returns the faults recorded
// and, when a hook aborted outside OnError, the abort error. Faults in
// OnError are logged and not returned.
func (m *CustomizableModel) runPhase(ctx context.Context, phase HookType, hc *HookContext, logger zerolog.Logger) ([]HookFault, *AbortError) {
	hc.Phase = phase
	var faults []HookFault

	for _, reg := range m.hooks.forPhase(phase) {
		var snap hookSnapshot
		if phase != OnError {
			snap = takeSnapshot(hc)
		}
		hc.abortReason = ""

		outcome, panicked, err := callHook(ctx, reg, hc)
		if err != nil {
			if phase != OnError {
				snap.restore(hc)
			}
			fault := HookFault{Hook: reg.name, Phase: phase, Err: err, Panicked: panicked}
			logger.Warn().
				Err(err).
				Str("hook", reg.name).
				Str("phase", phase.String()).
				Bool("panicked", panicked).
				Msg("Hook failed")
			if phase != OnError {
				faults = append(faults, fault)
			}
			continue
		}

		switch outcome {
		case SkipPhase:
			return faults, nil
		case Abort:
			if phase == OnError {
				return faults, nil
			}
			logger.Info().
				Str("hook", reg.name).
				Str("phase", phase.String()).
				Str("reason", hc.abortReason).
				Msg("Invocation aborted by hook")
			return faults, &AbortError{Hook: reg.name, Phase: phase, Reason: hc.abortReason}
		}
	}
	return faults, nil
}

// callHook runs one hook, converting a panic into an error.
func callHook(ctx context.Context, reg hookRegistration, hc *HookContext) (outcome Outcome, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Continue
			err = fmt.Errorf("%v", r)
			panicked = true
		}
	}()
	outcome, err = reg.fn(ctx, hc)
	return outcome, false, err
}

// hookSnapshot holds the parts of a HookContext a hook may change, so a
// failing hook leaves the invocation as if it had not run.
type hookSnapshot struct {
	request     *llm.Request
	processed   response.ProcessedResponse
	annotations map[string]any
}

func takeSnapshot(hc *HookContext) hookSnapshot {
	return hookSnapshot{
		request:     cloneRequest(hc.Request),
		processed:   hc.Processed,
		annotations: hc.Annotations(),
	}
}

func (s hookSnapshot) restore(hc *HookContext) {
	hc.Request = s.request
	hc.Processed = s.processed
	hc.annotations = s.annotations
	hc.abortReason = ""
}

func cloneRequest(req *llm.Request) *llm.Request {
	if req == nil {
		return nil
	}
	out := *req
	out.Messages = append([]llm.Message(nil), req.Messages...)
	if req.Options != nil {
		out.Options = make(map[string]any, len(req.Options))
		for k, v := range req.Options {
			out.Options[k] = copyValue(v)
		}
	}
	return &out
}

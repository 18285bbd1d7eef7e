package response

// AutoHandler classifies a model and handles its output in one step.
type AutoHandler struct {
	classifier *Classifier
	handler    *Handler
}

// NewAutoHandler creates an AutoHandler. Nil arguments fall back to the
// default classifier and handler.
func NewAutoHandler(classifier *Classifier, handler *Handler) *AutoHandler {
	if classifier == nil {
		classifier = defaultClassifier
	}
	if handler == nil {
		handler = defaultHandler
	}
	return &AutoHandler{classifier: classifier, handler: handler}
}

// Classifier returns the classifier in use.
func (a *AutoHandler) Classifier() *Classifier { return a.classifier }

// Handler returns the handler in use.
func (a *AutoHandler) Handler() *Handler { return a.handler }

// AutoHandle classifies modelID, refined by raw when the identifier is unknown,
// and handles raw accordingly. For an empty or unknown identifier the sample
// heuristics run first; plain is the default only when they find nothing.
func (a *AutoHandler) AutoHandle(raw, modelID string) ProcessedResponse {
	return a.handler.Handle(raw, a.classifier.ClassifySample(modelID, raw))
}

var (
	defaultClassifier = NewClassifier()
	defaultHandler    = NewHandler()
	defaultAuto       = NewAutoHandler(defaultClassifier, defaultHandler)
)

// Classify classifies modelID with the built-in table.
func Classify(modelID string) ModelType {
	return defaultClassifier.Classify(modelID)
}

// Handle processes raw as type t with the default delimiters.
func Handle(raw string, t ModelType) ProcessedResponse {
	return defaultHandler.Handle(raw, t)
}

// AutoHandle classifies modelID and processes raw with the defaults. See
// AutoHandler.AutoHandle for how unknown identifiers are classified.
func AutoHandle(raw, modelID string) ProcessedResponse {
	return defaultAuto.AutoHandle(raw, modelID)
}

// CleanThinking removes the first reasoning block from raw and returns the answer.
func CleanThinking(raw string) string {
	return defaultHandler.Handle(raw, TypeReasoning).Clean
}

// AutoClean returns only the clean answer for raw produced by modelID.
func AutoClean(raw, modelID string) string {
	return defaultAuto.AutoHandle(raw, modelID).Clean
}

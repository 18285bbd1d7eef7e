// Package llm defines the transport contract the rest of otk is written against.
//
// A local model service (Ollama, or any OpenAI-compatible server such as LM Studio
// or llama.cpp) is reached through the Client interface. Provider adapters live in
// the ollama and openai subpackages and translate between the service's wire types
// and the provider-neutral Request and Response defined here.
//
// # Core Concepts
//
//  1. Messages: Message carries a role (user, assistant, system) and its text.
//
//  2. Client: Synchronous() returns a complete Response; Stream() returns a Stream
//     of events that Collect folds back into a Response.
//
//  3. Options: Request.Options holds generation options by the service's option
//     names (temperature, top_p, num_predict, stop, ...). Adapters map what they
//     understand and drop the rest.
//
//  4. Middleware: transport-level decoration (logging, header injection, ...)
//     applied with WrapWithMiddleware. WithRetry adds exponential backoff for
//     retryable errors.
//
//  5. Errors: Error classifies transport failures (timeout, network, rate limit,
//     unknown model, provider) so callers can branch with the Is*Error helpers.
//
// Usage Example
//
//	base, err := ollama.NewOllamaClient("http://localhost:11434", "qwen3:8b", 0)
//	if err != nil {
//	    return err
//	}
//	client := llm.WithRetry(
//	    llm.WrapWithMiddleware(base, llm.NewLoggingMiddleware(logger)),
//	    llm.DefaultRetryPolicy(),
//	    logger,
//	)
//
//	resp, err := client.Synchronous(ctx, &llm.Request{
//	    Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "Hello!")},
//	    Options:  map[string]any{"temperature": 0.2},
//	})
package llm

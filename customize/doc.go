// Package customize configures model invocations and runs them through a hook
// pipeline.
//
// A ModelConfig holds validated generation options. Build one with a Builder,
// optionally starting from a named preset:
//
//	cfg, err := customize.Preset("creative").Temperature(0.5).MaxTokens(512).Build()
//
// A CustomizableModel pairs an llm.Client with a ModelConfig and hooks. Each
// invocation runs PreRequest hooks, the transport call, and PostResponse hooks,
// or OnError hooks when the call fails or a hook aborts:
//
//	hooks := customize.NewHooks().
//		PreRequest("tag", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
//			hc.Set("user", "alice")
//			return customize.Continue, nil
//		})
//	model, _ := customize.NewCustomizableModel(client, "deepseek-r1:7b", cfg, customize.WithHooks(hooks))
//	resp, faults, err := model.Invoke(ctx, "Why is the sky blue?")
//
// The response's reasoning is separated from its answer according to the
// model's type (see package response).
package customize

// Package hooks provides ready-made hooks for customize.CustomizableModel:
// invocation logging, Prometheus metrics and prompt validation.
//
//	metrics, err := hooks.NewMetrics(prometheus.DefaultRegisterer)
//	all := customize.NewHooks().
//		Extend(hooks.Validation(4096)).
//		Extend(hooks.Logging(logger)).
//		Extend(metrics.Hooks())
//	model, err := customize.NewCustomizableModel(client, "qwen3:8b", cfg, customize.WithHooks(all))
package hooks

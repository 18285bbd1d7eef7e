package customize

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/llm/testutil"
	"github.com/aschepis/backscratcher/otk/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, client llm.Client, model string, hooks *Hooks, opts ...Option) *CustomizableModel {
	t.Helper()
	cfg, err := Preset(PresetBalanced).SystemPrompt("Be helpful.").Build()
	require.NoError(t, err)
	opts = append(opts, WithHooks(hooks))
	m, err := NewCustomizableModel(client, model, cfg, opts...)
	require.NoError(t, err)
	return m
}

func record(calls *[]string, name string) HookFunc {
	return func(ctx context.Context, hc *HookContext) (Outcome, error) {
		*calls = append(*calls, name)
		return Continue, nil
	}
}

func TestInvokeProcessesReasoning(t *testing.T) {
	client := testutil.NewMockClient("<think>reasoning here</think>Final answer.")
	m := newModel(t, client, "deepseek-r1:7b", nil)

	resp, faults, err := m.Invoke(context.Background(), "question")
	require.NoError(t, err)
	assert.Empty(t, faults)
	assert.Equal(t, "Final answer.", resp.Clean)
	assert.Equal(t, "reasoning here", resp.Reasoning)
	assert.True(t, resp.Extracted)
	assert.Equal(t, response.TypeReasoning, resp.Type)

	req, ok := client.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "deepseek-r1:7b", req.Model)
	assert.Equal(t, "Be helpful.", req.System)
	assert.Equal(t, 0.7, req.Options[OptTemperature])
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "question", req.Messages[0].Content)
}

func TestInvokeUsesNativeReasoning(t *testing.T) {
	client := testutil.NewMockClient("Paris.")
	client.Reasoning = "The capital of France is Paris."
	m := newModel(t, client, "qwen3:8b", nil)

	resp, _, err := m.Invoke(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Clean)
	assert.Equal(t, "The capital of France is Paris.", resp.Reasoning)
	assert.True(t, resp.Extracted)
}

func TestInvokeDeclaredModelType(t *testing.T) {
	client := testutil.NewMockClient("<think>x</think>y")
	m := newModel(t, client, "deepseek-r1:7b", nil, WithModelType(response.TypePlain))

	assert.Equal(t, response.TypePlain, m.ModelType())
	resp, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "<think>x</think>y", resp.Clean)
	assert.False(t, resp.Extracted)
}

func TestInvokeStreaming(t *testing.T) {
	client := testutil.NewMockClient("")
	client.StreamFunc = func(ctx context.Context, req *llm.Request) (llm.Stream, error) {
		return testutil.NewMockStream(nil, "<think>step", "s</think>", "Done."), nil
	}
	m := newModel(t, client, "qwq:32b", nil, WithStreaming(true))

	resp, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Done.", resp.Clean)
	assert.Equal(t, "steps", resp.Reasoning)
}

func TestHookOrderAndSharedContext(t *testing.T) {
	var calls []string
	hooks := NewHooks().
		PreRequest("first", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "first")
			hc.Set("seen", "first")
			return Continue, nil
		}).
		PostResponse("post", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "post")
			assert.Equal(t, "second", hc.Get("seen"))
			return Continue, nil
		}).
		PreRequest("second", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "second")
			assert.Equal(t, "first", hc.Get("seen"))
			hc.Set("seen", "second")
			return Continue, nil
		}).
		OnError("never", record(&calls, "never"))

	m := newModel(t, testutil.NewMockClient("ok"), "llama3.2", hooks)
	_, faults, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, faults)
	assert.Equal(t, []string{"first", "second", "post"}, calls)
}

func TestHooksCopiedAtConstruction(t *testing.T) {
	var calls []string
	hooks := NewHooks().PreRequest("a", record(&calls, "a"))
	m := newModel(t, testutil.NewMockClient("ok"), "llama3.2", hooks)

	hooks.PreRequest("b", record(&calls, "b"))
	_, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, calls)
}

func TestPreRequestHookModifiesRequest(t *testing.T) {
	client := testutil.NewMockClient("ok")
	hooks := NewHooks().PreRequest("tune", func(ctx context.Context, hc *HookContext) (Outcome, error) {
		hc.Request.Options[OptTemperature] = 0.0
		hc.Request.System = "Override."
		return Continue, nil
	})
	m := newModel(t, client, "llama3.2", hooks)

	_, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	req, _ := client.LastRequest()
	assert.Equal(t, 0.0, req.Options[OptTemperature])
	assert.Equal(t, "Override.", req.System)

	// The model's own config is unchanged
	temp, _ := m.Config().Temperature()
	assert.Equal(t, 0.7, temp)
}

func TestSkipPhase(t *testing.T) {
	var calls []string
	hooks := NewHooks().
		PreRequest("a", record(&calls, "a")).
		PreRequest("skip", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "skip")
			return SkipPhase, nil
		}).
		PreRequest("c", record(&calls, "c")).
		PostResponse("post", record(&calls, "post"))

	client := testutil.NewMockClient("ok")
	m := newModel(t, client, "llama3.2", hooks)
	_, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "skip", "post"}, calls)
	assert.Equal(t, 1, client.Calls())
}

func TestHookFaultsAreRecorded(t *testing.T) {
	var calls []string
	hookErr := errors.New("metrics backend down")
	hooks := NewHooks().
		PreRequest("failing", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			return Abort, hookErr
		}).
		PreRequest("panicking", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			panic("nil map")
		}).
		PreRequest("after", record(&calls, "after")).
		PostResponse("post-panic", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			var m map[string]int
			m["x"] = 1
			return Continue, nil
		})

	client := testutil.NewMockClient("answer")
	m := newModel(t, client, "llama3.2", hooks)
	resp, faults, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Clean)
	assert.Equal(t, []string{"after"}, calls)
	assert.Equal(t, 1, client.Calls())

	require.Len(t, faults, 3)
	assert.Equal(t, "failing", faults[0].Hook)
	assert.Equal(t, PreRequest, faults[0].Phase)
	assert.ErrorIs(t, faults[0], hookErr)
	assert.False(t, faults[0].Panicked)

	assert.Equal(t, "panicking", faults[1].Hook)
	assert.True(t, faults[1].Panicked)
	assert.Contains(t, faults[1].Error(), "nil map")

	assert.Equal(t, "post-panic", faults[2].Hook)
	assert.Equal(t, PostResponse, faults[2].Phase)
	assert.True(t, faults[2].Panicked)
}

func TestFailingHookLeavesContextUntouched(t *testing.T) {
	hooks := NewHooks().
		PreRequest("clobber", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			hc.Request.Messages = nil
			hc.Request.Options[OptTemperature] = 1.9
			hc.Set("partial", true)
			return Continue, errors.New("failed midway")
		}).
		PreRequest("mutate-in-place", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			hc.Request.Messages[0].Content = "rewritten"
			panic("boom")
		}).
		PreRequest("check", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			_, ok := hc.Lookup("partial")
			assert.False(t, ok)
			return Continue, nil
		}).
		PostResponse("clobber-processed", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			hc.Processed.Clean = "garbage"
			return Continue, errors.New("failed midway")
		})

	client := testutil.NewMockClient("answer")
	m := newModel(t, client, "llama3.2", hooks)
	resp, faults, err := m.Invoke(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Len(t, faults, 3)
	assert.Equal(t, "answer", resp.Clean)

	req, ok := client.LastRequest()
	require.True(t, ok)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "the prompt", req.Messages[0].Content)
	assert.Equal(t, 0.7, req.Options[OptTemperature])
}

func TestAbortReasonBelongsToAbortingHook(t *testing.T) {
	hooks := NewHooks().
		PostResponse("faulty", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			hc.Abort("stale")
			return Continue, errors.New("broken")
		}).
		PostResponse("bare", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			return Abort, nil
		})

	m := newModel(t, testutil.NewMockClient("ok"), "llama3.2", hooks)
	_, faults, err := m.Invoke(context.Background(), "q")
	require.Len(t, faults, 1)

	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, "bare", abortErr.Hook)
	assert.Empty(t, abortErr.Reason)
}

func TestAbortInPreRequest(t *testing.T) {
	var onError []error
	hooks := NewHooks().
		PreRequest("guard", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			return hc.Abort("prompt is empty")
		}).
		PreRequest("unreached", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			t.Error("hook after abort should not run")
			return Continue, nil
		}).
		OnError("capture", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			onError = append(onError, hc.Err)
			assert.Equal(t, OnError, hc.Phase)
			return Continue, nil
		})

	client := testutil.NewMockClient("ok")
	m := newModel(t, client, "llama3.2", hooks)
	resp, _, err := m.Invoke(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, "guard", abortErr.Hook)
	assert.Equal(t, PreRequest, abortErr.Phase)
	assert.Equal(t, "prompt is empty", abortErr.Reason)

	assert.Equal(t, 0, client.Calls())
	assert.Empty(t, resp.Clean)
	require.Len(t, onError, 1)
	assert.ErrorIs(t, onError[0], context.Canceled)
}

func TestAbortInPostResponse(t *testing.T) {
	var sawErr bool
	hooks := NewHooks().
		PostResponse("reject", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			assert.Equal(t, "secret", hc.Processed.Clean)
			return hc.Abort("contains secret")
		}).
		OnError("capture", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			sawErr = hc.Err != nil
			return Continue, nil
		})

	m := newModel(t, testutil.NewMockClient("secret"), "llama3.2", hooks)
	resp, _, err := m.Invoke(context.Background(), "q")
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, PostResponse, abortErr.Phase)
	assert.Empty(t, resp.Clean)
	assert.True(t, sawErr)
}

func TestTransportErrorRunsOnError(t *testing.T) {
	transportErr := llm.NewTimeoutError("ollama chat request failed", context.DeadlineExceeded)
	client := testutil.NewMockClient("")
	client.SynchronousFunc = func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return nil, transportErr
	}

	var calls []string
	hooks := NewHooks().
		PostResponse("post", record(&calls, "post")).
		OnError("broken", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "broken")
			return Continue, errors.New("handler failed")
		}).
		OnError("panics", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "panics")
			panic("boom")
		}).
		OnError("stop", func(ctx context.Context, hc *HookContext) (Outcome, error) {
			calls = append(calls, "stop")
			assert.True(t, llm.IsTimeoutError(hc.Err))
			return hc.Abort("enough")
		}).
		OnError("skipped", record(&calls, "skipped"))

	m := newModel(t, client, "llama3.2", hooks)
	_, faults, err := m.Invoke(context.Background(), "q")
	require.Error(t, err)
	assert.Same(t, transportErr, err)
	assert.Empty(t, faults)
	assert.Equal(t, []string{"broken", "panics", "stop"}, calls)
}

func TestPostResponseHookReplacesProcessed(t *testing.T) {
	hooks := NewHooks().PostResponse("upper", func(ctx context.Context, hc *HookContext) (Outcome, error) {
		p := hc.Processed
		p.Clean = "[" + p.Clean + "]"
		hc.Processed = p
		return Continue, nil
	})

	m := newModel(t, testutil.NewMockClient("x"), "llama3.2", hooks)
	resp, _, err := m.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "[x]", resp.Clean)
}

func TestHookContextFields(t *testing.T) {
	var ids []string
	hooks := NewHooks().PreRequest("inspect", func(ctx context.Context, hc *HookContext) (Outcome, error) {
		ids = append(ids, hc.InvocationID)
		assert.Equal(t, "llama3.2", hc.Model)
		assert.Equal(t, "last question", hc.Prompt)
		assert.False(t, hc.StartedAt.IsZero())
		_, ok := hc.Lookup("missing")
		assert.False(t, ok)
		return Continue, nil
	})

	m := newModel(t, testutil.NewMockClient("ok"), "llama3.2", hooks)
	history := []llm.Message{
		llm.NewTextMessage(llm.RoleUser, "first question"),
		llm.NewTextMessage(llm.RoleAssistant, "first answer"),
		llm.NewTextMessage(llm.RoleUser, "last question"),
	}
	_, _, err := m.Chat(context.Background(), history)
	require.NoError(t, err)
	_, _, err = m.Chat(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestConcurrentInvocations(t *testing.T) {
	hooks := NewHooks().PreRequest("annotate", func(ctx context.Context, hc *HookContext) (Outcome, error) {
		hc.Set("prompt", hc.Prompt)
		return Continue, nil
	}).PostResponse("check", func(ctx context.Context, hc *HookContext) (Outcome, error) {
		if hc.Get("prompt") != hc.Prompt {
			return Continue, errors.New("annotation leaked between invocations")
		}
		return Continue, nil
	})
	m := newModel(t, testutil.NewMockClient("<think>t</think>a"), "deepseek-r1", hooks)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, faults, err := m.Invoke(context.Background(), string(rune('a'+i)))
			assert.NoError(t, err)
			assert.Empty(t, faults)
			assert.Equal(t, "a", resp.Clean)
		}(i)
	}
	wg.Wait()
}

func TestNewCustomizableModelRequiresClient(t *testing.T) {
	_, err := NewCustomizableModel(nil, "m", ModelConfig{})
	require.Error(t, err)
}

func TestHooksNames(t *testing.T) {
	h := NewHooks().PreRequest("a", record(new([]string), "a")).OnError("b", record(new([]string), "b")).PreRequest("c", record(new([]string), "c"))
	assert.Equal(t, []string{"a", "c"}, h.Names(PreRequest))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "on_error", OnError.String())
}

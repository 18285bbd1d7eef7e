package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/llm/testutil"
	"github.com/rs/zerolog"
)

func TestWrapWithMiddleware_Order(t *testing.T) {
	var calls []string
	record := func(name string) llm.Middleware {
		return llm.MiddlewareFunc{
			BeforeRequestFunc: func(ctx context.Context, req *llm.Request) (*llm.Request, error) {
				calls = append(calls, "before:"+name)
				return req, nil
			},
			AfterResponseFunc: func(ctx context.Context, req *llm.Request, resp *llm.Response) (*llm.Response, error) {
				calls = append(calls, "after:"+name)
				return resp, nil
			},
		}
	}

	client := llm.WrapWithMiddleware(testutil.NewMockClient("ok"), record("a"), record("b"))
	if _, err := client.Synchronous(context.Background(), &llm.Request{Model: "m"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"before:a", "before:b", "after:b", "after:a"}
	if len(calls) != len(want) {
		t.Fatalf("Expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
		}
	}
}

func TestWrapWithMiddleware_BeforeRequestModifies(t *testing.T) {
	mock := testutil.NewMockClient("ok")
	client := llm.WrapWithMiddleware(mock, llm.MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *llm.Request) (*llm.Request, error) {
			req.System = "be brief"
			return req, nil
		},
	})

	if _, err := client.Synchronous(context.Background(), &llm.Request{Model: "m"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	req, _ := mock.LastRequest()
	if req.System != "be brief" {
		t.Errorf("Expected system prompt to be set by middleware, got %q", req.System)
	}
}

func TestWrapWithMiddleware_BeforeRequestAborts(t *testing.T) {
	mock := testutil.NewMockClient("ok")
	abortErr := errors.New("blocked")
	client := llm.WrapWithMiddleware(mock, llm.MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *llm.Request) (*llm.Request, error) {
			return nil, abortErr
		},
	})

	if _, err := client.Synchronous(context.Background(), &llm.Request{}); !errors.Is(err, abortErr) {
		t.Errorf("Expected abort error, got %v", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("Expected no transport calls, got %d", mock.Calls())
	}
}

func TestWrapWithMiddleware_OnError(t *testing.T) {
	mock := testutil.NewMockClient("")
	mock.SynchronousFunc = func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return nil, errors.New("boom")
	}
	replaced := llm.NewProviderError("replaced", nil)

	client := llm.WrapWithMiddleware(mock,
		llm.MiddlewareFunc{OnErrorFunc: func(ctx context.Context, req *llm.Request, err error) error {
			return replaced
		}},
		llm.MiddlewareFunc{OnErrorFunc: func(ctx context.Context, req *llm.Request, err error) error {
			return nil
		}},
	)

	_, err := client.Synchronous(context.Background(), &llm.Request{})
	if err != error(replaced) {
		t.Errorf("Expected replaced error, got %v", err)
	}
}

func TestWrapWithMiddleware_StreamAndListModels(t *testing.T) {
	mock := testutil.NewMockClient("streamed")
	mock.Models = []llm.ModelInfo{{Name: "qwen3:8b"}}
	client := llm.WrapWithMiddleware(mock, llm.NewLoggingMiddleware(zerolog.Nop()))

	stream, err := client.Stream(context.Background(), &llm.Request{Model: "m"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	resp, err := llm.Collect(stream)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Text != "streamed" {
		t.Errorf("Expected text 'streamed', got %q", resp.Text)
	}

	lister, ok := client.(llm.ModelLister)
	if !ok {
		t.Fatal("Expected wrapped client to implement ModelLister")
	}
	models, err := lister.ListModels(context.Background())
	if err != nil || len(models) != 1 {
		t.Errorf("Expected one model, got %v (err %v)", models, err)
	}
}

func TestLoggingMiddleware_InitializesOptions(t *testing.T) {
	mw := llm.NewLoggingMiddleware(zerolog.Nop())
	req, err := mw.BeforeRequest(context.Background(), &llm.Request{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if req.Options == nil {
		t.Error("Expected options map to be initialized")
	}
}

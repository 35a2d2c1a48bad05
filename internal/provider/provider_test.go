package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/provider/providertest"
)

// Interface guards.
var (
	_ provider.Provider      = (*providertest.MockProvider)(nil)
	_ provider.HealthChecker = (*providertest.MockProvider)(nil)
)

func TestMockProviderRecordsRequests(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		CompleteFunc: func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: "ok"}, nil
		},
	}

	resp, err := mock.Complete(context.Background(), provider.CompletionRequest{Prompt: "what is gravity?"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q, want %q", resp.Content, "ok")
	}

	if mock.CompleteCalls() != 1 {
		t.Errorf("CompleteCalls() = %d, want 1", mock.CompleteCalls())
	}
	reqs := mock.Requests()
	if len(reqs) != 1 || reqs[0].Prompt != "what is gravity?" {
		t.Errorf("recorded requests = %+v, want single request with original prompt", reqs)
	}
}

func TestMockProviderDefaultModelName(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{}
	if mock.ModelName() != "mock-model" {
		t.Errorf("ModelName() = %q, want %q", mock.ModelName(), "mock-model")
	}

	mock.ModelNameFunc = func() string { return "gemini-2.5-flash" }
	if mock.ModelName() != "gemini-2.5-flash" {
		t.Errorf("ModelName() = %q, want %q", mock.ModelName(), "gemini-2.5-flash")
	}
}

func TestMockProviderHealthCheck(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("probe failed")
	mock := &providertest.MockProvider{
		HealthCheckFunc: func(_ context.Context) error { return wantErr },
	}

	if err := mock.HealthCheck(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("HealthCheck() = %v, want %v", err, wantErr)
	}
	if mock.HealthCalls() != 1 {
		t.Errorf("HealthCalls() = %d, want 1", mock.HealthCalls())
	}
}

package llm

import (
	"context"
	"testing"
)

type fakeProvider struct {
	responses []string
	i         int
}

func (f *fakeProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	r := f.responses[f.i]
	if f.i < len(f.responses)-1 {
		f.i++
	}
	return &ChatResponse{Content: r}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestStructuredChatStripsCodeFence(t *testing.T) {
	p := &fakeProvider{responses: []string{"```json\n{\"name\":\"Jake\"}\n```"}}
	var out struct {
		Name string `json:"name"`
	}
	if _, err := StructuredChat(context.Background(), p, ChatRequest{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "Jake" {
		t.Errorf("expected Jake, got %q", out.Name)
	}
}

func TestStructuredChatRetriesOnBadJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{"not json at all", `{"name":"Jake"}`}}
	var out struct {
		Name string `json:"name"`
	}
	if _, err := StructuredChat(context.Background(), p, ChatRequest{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "Jake" {
		t.Errorf("expected Jake after retry, got %q", out.Name)
	}
}

func TestStructuredChatFailsAfterRetryExhausted(t *testing.T) {
	p := &fakeProvider{responses: []string{"nope", "still nope"}}
	var out struct{}
	if _, err := StructuredChat(context.Background(), p, ChatRequest{}, &out); err == nil {
		t.Fatalf("expected error after retry exhausted")
	}
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredChat issues a json_object chat request and unmarshals the
// response into out, retrying once with a corrective follow-up message if
// the first response is not valid JSON. Every extraction pass (§4.3) and
// the dedup Tier 3 LLM tie-break (§4.5) go through this helper instead of
// hand-rolling JSON-mode calls.
func StructuredChat(ctx context.Context, p Provider, req ChatRequest, out any) (*ChatResponse, error) {
	req.ResponseFormat = "json_object"

	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: structured chat request failed: %w", err)
	}

	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), out); err == nil {
		return resp, nil
	}

	retryReq := req
	retryReq.Messages = append(append([]Message{}, req.Messages...), Message{
		Role:    "user",
		Content: "Your previous response was not valid JSON. Respond with only a single valid JSON object, no commentary.",
	})
	resp2, err := p.Chat(ctx, retryReq)
	if err != nil {
		return nil, fmt.Errorf("llm: structured chat retry failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(resp2.Content)), out); err != nil {
		return nil, fmt.Errorf("llm: response was not valid JSON after retry: %w", err)
	}
	return resp2, nil
}

// extractJSON strips markdown code fences LLMs frequently wrap JSON in,
// adapted from the teacher's graph.Builder.extractJSON.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

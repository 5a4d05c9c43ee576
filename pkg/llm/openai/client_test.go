package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trainplan/pkg/llm"
)

func TestBuildParams(t *testing.T) {
	params := buildParams("gpt-4o", llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "write week 1"},
		},
		MaxTokens:   2000,
		Temperature: 0.7,
	})

	assert.Equal(t, "gpt-4o", string(params.Model))
	assert.Equal(t, int64(2000), params.MaxOutputTokens.Value)
	assert.InDelta(t, 0.7, params.Temperature.Value, 1e-6)

	input := params.Input.OfString.Value
	assert.Contains(t, input, "System: be brief")
	assert.Contains(t, input, "write week 1")
}

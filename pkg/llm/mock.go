package llm

import (
	"context"
	"fmt"
)

// MockClient provides a controllable implementation of Client for testing.
type MockClient struct {
	responses     []CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int

	// CompleteFn, when set, overrides the canned responses entirely.
	CompleteFn func(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Requests records every request passed to Complete.
	Requests []CompletionRequest
}

// NewMockClient creates a mock client with predefined responses and errors.
// Errors are consumed before responses, matching call order in tests.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
	}
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	m.Requests = append(m.Requests, in)

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, in)
	}

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// GetModelName returns a fixed mock model name.
func (m *MockClient) GetModelName() string {
	return "mock-model"
}

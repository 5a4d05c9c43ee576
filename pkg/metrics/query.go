package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// GenerationStats represents aggregated generation metrics across the service.
type GenerationStats struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	Requests         int64 `json:"requests"`
	Failures         int64 `json:"failures"`
	PlansCompleted   int64 `json:"plans_completed"`
}

// QueryService provides methods to query aggregated metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service against the given Prometheus URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetGenerationStats aggregates token usage and request counts across all
// models since process start.
func (q *QueryService) GetGenerationStats(ctx context.Context) (*GenerationStats, error) {
	stats := &GenerationStats{}

	queries := []struct {
		expr string
		dest *int64
	}{
		{`sum(plangen_tokens_total{type="prompt"})`, &stats.PromptTokens},
		{`sum(plangen_tokens_total{type="completion"})`, &stats.CompletionTokens},
		{`sum(plangen_requests_total)`, &stats.Requests},
		{`sum(plangen_requests_total{status="error"})`, &stats.Failures},
		{`sum(plangen_plans_completed_total)`, &stats.PlansCompleted},
	}

	for _, query := range queries {
		result, _, err := q.queryAPI.Query(ctx, query.expr, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query %q: %w", query.expr, err)
		}
		if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
			*query.dest = int64(vector[0].Value)
		}
	}

	return stats, nil
}

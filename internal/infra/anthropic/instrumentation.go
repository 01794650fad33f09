package anthropic

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "voice-chat/internal/infra/anthropic"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)

	requestCounter, _ = meter.Int64Counter("gateway.requests",
		metric.WithDescription("Messages API calls by outcome"),
	)
)

package relay

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "DoodleBoard/internal/relay"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

package tracing

import (
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
)

// StepAttributes формирует атрибуты спана шага процесса
func StepAttributes(rec *domain.StepRecord) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("step.index", rec.Step),
		attribute.String("step.name", rec.Name),
		attribute.String("step.status", string(rec.Status)),
	}
	if rec.OrderID != "" {
		attrs = append(attrs, attribute.String("order.id", rec.OrderID))
	}
	if len(rec.Reports) > 0 {
		attrs = append(attrs, attribute.Int("reports.count", len(rec.Reports)))
	}
	return attrs
}

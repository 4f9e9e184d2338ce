package tracing

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recordCarrier: TextMapCarrier поверх заголовков записи Kafka
type recordCarrier struct {
	record *kgo.Record
}

func (c recordCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c recordCarrier) Set(key, value string) {
	for i, h := range c.record.Headers {
		if h.Key == key {
			c.record.Headers[i].Value = []byte(value)
			return
		}
	}
	c.record.Headers = append(c.record.Headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c recordCarrier) Keys() []string {
	keys := make([]string, len(c.record.Headers))
	for i, h := range c.record.Headers {
		keys[i] = h.Key
	}
	return keys
}

// InjectToRecord добавляет `traceparent` в заголовки записи
func InjectToRecord(ctx context.Context, record *kgo.Record) {
	otel.GetTextMapPropagator().Inject(ctx, recordCarrier{record: record})
}

// LinksFromRecord извлекает `traceparent` из записи и возвращает Link на спан продюсера
func LinksFromRecord(ctx context.Context, record *kgo.Record) []trace.Link {
	parent := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(ctx, recordCarrier{record: record}))
	if !parent.IsValid() {
		return nil
	}
	return []trace.Link{{
		SpanContext: parent,
		Attributes: []attribute.KeyValue{
			attribute.String("link.type", "async"),
			attribute.String("link.protocol", "kafka"),
			attribute.String("link.role", "consumer"),
		},
	}}
}

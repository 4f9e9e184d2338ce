package tracing

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Vasiliy82/eaeu-circulation"

func tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// StartApplication открывает спан бизнес-логики
func StartApplication(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return startSpan(ctx, operation, LayerApplication, SubLayerUseCase, opts...)
}

// StartPresentation открывает спан входящего запроса
func StartPresentation(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return startSpan(ctx, operation, LayerPresentation, subLayer, opts...)
}

// StartInfrastructure открывает спан работы с инфраструктурой (брокер и т.п.)
func StartInfrastructure(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return startSpan(ctx, operation, LayerInfrastructure, subLayer, opts...)
}

// StartIntegration открывает спан вызова внешней системы
func StartIntegration(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return startSpan(ctx, operation, LayerIntegration, subLayer, opts...)
}

// Fail отмечает спан как ошибочный
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func startSpan(ctx context.Context, operation string, layer Layer, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	// Неверная пара слоёв не должна ломать бизнес-логику: спан создаётся всё равно
	layerErr := validateLayerSubLayer(layer, subLayer)

	opts = append(opts, trace.WithAttributes(
		attribute.String("layer", string(layer)),
		attribute.String("subLayer", string(subLayer)),
		attribute.String("function.name", getCallerFunctionName()),
	))
	ctx, span := tracer().Start(ctx, generateSpanName(operation, layer, subLayer), opts...)
	if layerErr != nil {
		span.SetAttributes(attribute.String("tracing.error", layerErr.Error()))
	}
	return ctx, span
}

// Получение имени функции, вызвавшей Start*
func getCallerFunctionName() string {
	pc, _, _, ok := runtime.Caller(3)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

// Формирование имени спана по шаблону
func generateSpanName(operation string, layer Layer, subLayer SubLayer) string {
	switch {
	case layer == LayerApplication:
		return fmt.Sprintf("Business %s", operation)
	case layer == LayerIntegration && subLayer == SubLayerThirdParty:
		return fmt.Sprintf("External API %s", operation)
	case layer == LayerInfrastructure && subLayer == SubLayerBroker:
		return fmt.Sprintf("Kafka %s", operation)
	case layer == LayerPresentation:
		return fmt.Sprintf("HTTP %s", operation)
	default:
		return operation
	}
}

package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/parser"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

// SourceKafka: источник запусков, пришедших через топик запросов
const SourceKafka = "kafka"

// CirculationRequest: сообщение топика запросов
type CirculationRequest struct {
	RequestID   string `json:"request_id"`
	ProductText string `json:"product_text"`
	CodesText   string `json:"codes_text"`
}

// Runner выполняет процесс ввода в оборот
type Runner interface {
	Run(ctx context.Context, in usecase.Input) (*domain.WorkflowResult, error)
}

// KafkaConsumer получает запросы на обработку из Kafka
type KafkaConsumer struct {
	client    *kgo.Client
	topic     string
	runner    Runner
	publisher usecase.ResultPublisher
	logger    *zap.Logger
}

// NewKafkaConsumer создает консьюмера группы. Смещения фиксируются только
// после обработки записи.
func NewKafkaConsumer(brokers []string, topic, group string, runner Runner,
	publisher usecase.ResultPublisher, logger *zap.Logger) (*KafkaConsumer, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.AutoCommitMarks(),
		kgo.ClientID("circulation-worker"),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Kafka-консьюмера: %w", err)
	}

	return &KafkaConsumer{
		client:    client,
		topic:     topic,
		runner:    runner,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// StartListening обрабатывает записи по одной до отмены ctx
func (kc *KafkaConsumer) StartListening(ctx context.Context) error {
	kc.logger.Info("Topic listening started", zap.String("topic", kc.topic))
	for {
		fetches := kc.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			kc.logger.Error("Ошибка чтения из Kafka",
				zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			if err := kc.handleRecord(ctx, record); err != nil {
				kc.logger.Error("Ошибка обработки запроса", zap.Error(err))
			}
			if ctx.Err() != nil {
				// Прерванный запуск будет повторно прочитан после рестарта
				return nil
			}
			kc.client.MarkCommitRecords(record)
		}
	}
}

func (kc *KafkaConsumer) handleRecord(ctx context.Context, record *kgo.Record) error {
	links := tracing.LinksFromRecord(ctx, record)
	ctx, span := tracing.StartInfrastructure(ctx, "processMessage", tracing.SubLayerBroker, trace.WithLinks(links...))
	defer span.End()
	span.SetAttributes(
		attribute.String("kafka.topic", record.Topic),
		attribute.Int64("kafka.offset", record.Offset),
	)

	err := processRequest(ctx, record.Value, kc.runner, kc.publisher, kc.logger)
	tracing.Fail(span, err)
	return err
}

// processRequest разбирает запрос и запускает процесс. Ошибка разбора
// публикуется как неуспешный результат; ошибка шага публикует сам usecase.
func processRequest(ctx context.Context, value []byte, runner Runner,
	publisher usecase.ResultPublisher, logger *zap.Logger) error {

	var req CirculationRequest
	if err := json.Unmarshal(value, &req); err != nil {
		runID := uuid.NewString()
		logger.Warn("Некорректное сообщение", zap.String("request_id", runID), zap.Error(err))
		return publishRejected(ctx, publisher, runID, &BadRequestError{Err: err})
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := logger.With(zap.String("request_id", req.RequestID))

	records, err := parser.ParseRecords(req.ProductText)
	if err != nil {
		log.Warn("Некорректный файл товаров", zap.Error(err))
		return publishRejected(ctx, publisher, req.RequestID, err)
	}
	codes := parser.ParseCodes(req.CodesText)

	log.Info("Начинаем обработку запроса", zap.Int("products", len(records)), zap.Int("codes", len(codes)))
	res, err := runner.Run(ctx, usecase.Input{
		RequestID: req.RequestID,
		Records:   records,
		Codes:     codes,
		Source:    SourceKafka,
	})
	if err != nil {
		return fmt.Errorf("запрос %s: %w", req.RequestID, err)
	}
	log.Info("Запрос обработан", zap.String("final_status", string(res.FinalStatus)))
	return nil
}

// BadRequestError: сообщение топика запросов не разбирается как JSON
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return fmt.Sprintf("некорректное сообщение: %v", e.Err) }
func (e *BadRequestError) Kind() string  { return "bad_request" }
func (e *BadRequestError) Unwrap() error { return e.Err }

func publishRejected(ctx context.Context, publisher usecase.ResultPublisher, requestID string, cause error) error {
	if publisher == nil {
		return cause
	}
	res := &domain.WorkflowResult{
		GTINs:        []string{},
		CodesToOrder: domain.Shortfall{},
		Steps:        []domain.StepRecord{},
		Error:        &domain.ErrorPayload{Kind: "internal", Message: cause.Error()},
	}
	var k interface{ Kind() string }
	if errors.As(cause, &k) {
		res.Error.Kind = k.Kind()
	}
	if err := publisher.PublishResult(ctx, domain.ResultEvent{RunID: requestID, Source: SourceKafka, Result: res}); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (kc *KafkaConsumer) Close() {
	kc.client.Close()
}

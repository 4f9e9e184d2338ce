package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

// producer: часть kgo.Client, нужная публикатору
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// ResultPublisher публикует результаты запусков в Kafka
type ResultPublisher struct {
	client producer
	topic  string
	logger *zap.Logger
}

// NewResultPublisher создает Kafka-клиент и при необходимости создает топик
func NewResultPublisher(ctx context.Context, brokers []string, topic string, logger *zap.Logger) (*ResultPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(10 * time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()), // Ждем, пока все реплики подтвердят запись
		kgo.ClientID("circulation-service"),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Kafka-клиента: %w", err)
	}

	// Автоматически создаем топик, если его нет
	if err := EnsureTopicExists(ctx, kadm.NewClient(client), topic, logger); err != nil {
		client.Close()
		return nil, err
	}

	return &ResultPublisher{client: client, topic: topic, logger: logger}, nil
}

// EnsureTopicExists проверяет наличие топика и создает его, если он отсутствует
func EnsureTopicExists(ctx context.Context, admin *kadm.Client, topic string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ctx, span := tracing.StartInfrastructure(ctx, "EnsureTopicExists", tracing.SubLayerBroker)
	defer span.End()

	topicMetadata, err := admin.ListTopics(ctx)
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("ошибка получения списка топиков: %w", err)
	}

	if topicMetadata.Has(topic) {
		logger.Debug("Топик уже существует", zap.String("topic", topic))
		span.SetAttributes(attribute.Bool("topic.exists", true))
		return nil
	}

	resp, err := admin.CreateTopics(ctx, 1, 1, map[string]*string{
		"min.insync.replicas": kadm.StringPtr("1"),
	}, topic)
	if err == nil {
		err = resp.Error()
	}
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("ошибка создания топика %s: %w", topic, err)
	}

	span.SetAttributes(attribute.Bool("topic.created", true))
	logger.Info("Топик успешно создан", zap.String("topic", topic))
	return nil
}

// PublishResult отправляет результат запуска; ключ записи: идентификатор запуска
func (p *ResultPublisher) PublishResult(ctx context.Context, ev domain.ResultEvent) error {
	ctx, span := tracing.StartInfrastructure(ctx, "PublishResult", tracing.SubLayerBroker)
	defer span.End()

	data, err := json.Marshal(ev)
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("ошибка сериализации результата: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.RunID),
		Value: data,
	}
	tracing.InjectToRecord(ctx, record)

	span.SetAttributes(attribute.String("kafka.topic", p.topic), attribute.String("run.id", ev.RunID))
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("ошибка отправки результата %s в Kafka: %w", ev.RunID, err)
	}

	p.logger.Info("Результат отправлен в Kafka", zap.String("topic", p.topic), zap.String("run_id", ev.RunID))
	return nil
}

// Close закрывает Kafka-клиент
func (p *ResultPublisher) Close() {
	p.client.Close()
}

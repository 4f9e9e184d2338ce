package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vasiliy82/eaeu-circulation/internal/infrastructure"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Обработка запросов из топика Kafka с публикацией результатов",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKER не задан")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(ctx)
	if err != nil {
		return err
	}
	defer publisher.Close()

	uc, err := newUseCase(publisher)
	if err != nil {
		return err
	}

	consumer, err := infrastructure.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestsTopic, cfg.Kafka.Group,
		uc, publisher, logger)
	if err != nil {
		return err
	}

	defer consumer.Close()

	// Текущая запись дорабатывается до отмены ctx, затем цикл завершается
	return consumer.StartListening(ctx)
}

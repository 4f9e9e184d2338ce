package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/facebookgo/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
	"github.com/Vasiliy82/eaeu-circulation/internal/demand"
	"github.com/Vasiliy82/eaeu-circulation/internal/infrastructure"
	"github.com/Vasiliy82/eaeu-circulation/internal/logging"
	"github.com/Vasiliy82/eaeu-circulation/internal/poll"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

var (
	// Global flags
	logLevel string

	cfg            config.Config
	logger         *zap.Logger
	shutdownTracer func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "circulation",
	Short: "Ввод в оборот товаров из ЕАЭС через API эмитента кодов маркировки",
	Long: `Сервис принимает файл описаний товаров (GTIN; описание; количество) и файл
имеющихся кодов маркировки, дозаказывает недостающие коды и отправляет отчёты
о вводе в оборот. Отдельно доступен перевод кодов РФ в формат РБ.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.New(logging.Options{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			Production: cfg.IsProduction(),
		})
		if err != nil {
			return err
		}

		shutdownTracer, err = tracing.InitTracer(
			tracing.TraceConfig{ExporterURL: cfg.Tracing.ExporterURL, SampleRate: cfg.Tracing.SampleRate, Timeout: 5 * time.Second},
			tracing.AppInfo{
				Environment:       cfg.Env,
				DomainName:        cfg.Tracing.DomainName,
				ServiceName:       cfg.Tracing.ServiceName,
				ServiceVersion:    cfg.Tracing.ServiceVersion,
				ServiceInstanceID: cfg.Tracing.InstanceID,
			},
		)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTracer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				logger.Warn("Ошибка завершения трейсинга", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Уровень логирования (по умолчанию LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(convertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newUseCase собирает процесс ввода в оборот по конфигурации
func newUseCase(publisher usecase.ResultPublisher) (*usecase.CirculationUseCase, error) {
	allocator, err := demand.NewAllocator(cfg.Circulation.AllocationStrategy)
	if err != nil {
		return nil, err
	}
	if !cfg.HasCredentials() {
		logger.Warn("API_USERNAME или API_PASSWORD не заданы: авторизация у эмитента не пройдет")
	}

	poller := poll.New(clock.New(), cfg.API.CheckInterval, cfg.API.MaxWaitTime, logger)
	authority := infrastructure.NewAuthorityClient(infrastructure.AuthorityConfig{
		BaseURL:      cfg.API.BaseURL,
		Username:     cfg.API.Username,
		Password:     cfg.API.Password,
		Timeout:      cfg.API.Timeout,
		ProductGroup: cfg.Circulation.ProductGroup,
		CodeType:     cfg.Circulation.CodeType,
		CountryCode:  cfg.Circulation.CountryCode,
		ReasonCode:   cfg.Circulation.ReasonCode,
	}, poller, logger)

	opts := []usecase.Option{usecase.WithAllocator(allocator), usecase.WithLogger(logger)}
	if publisher != nil {
		opts = append(opts, usecase.WithPublisher(publisher))
	}
	return usecase.NewCirculationUseCase(authority, opts...), nil
}

// newPublisher подключается к Kafka, если брокеры заданы
func newPublisher(ctx context.Context) (*infrastructure.ResultPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	return infrastructure.NewResultPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic, logger)
}

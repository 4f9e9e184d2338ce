package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/demand"
	"github.com/Vasiliy82/eaeu-circulation/internal/poll"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

// CodeAuthority: API эмитента кодов. Await* блокируют вызов до завершения
// операции или истечения времени ожидания.
type CodeAuthority interface {
	Authenticate(ctx context.Context) error
	OrderCodes(ctx context.Context, shortfall domain.Shortfall) (string, error)
	AwaitOrder(ctx context.Context, orderID string) error
	DownloadCodes(ctx context.Context, orderID string) ([]domain.Code, error)
	SubmitReport(ctx context.Context, gtin string, codes []domain.Code) (string, error)
	AwaitReport(ctx context.Context, reportID string) error
}

// ResultPublisher отправляет результат запуска во внешние системы.
type ResultPublisher interface {
	PublishResult(ctx context.Context, ev domain.ResultEvent) error
}

// Input: разобранные входные файлы. RequestID, если задан, становится
// идентификатором запуска.
type Input struct {
	RequestID string
	Records   []domain.ProductRecord
	Codes     []domain.Code
	Source    string
}

// CirculationUseCase ведёт процесс ввода в оборот из шести шагов.
type CirculationUseCase struct {
	authority CodeAuthority
	allocator demand.Allocator
	publisher ResultPublisher
	logger    *zap.Logger
}

// Option настраивает CirculationUseCase.
type Option func(*CirculationUseCase)

// WithAllocator задаёт стратегию распределения скачанных кодов.
func WithAllocator(a demand.Allocator) Option {
	return func(uc *CirculationUseCase) { uc.allocator = a }
}

// WithPublisher задаёт получателя результатов.
func WithPublisher(p ResultPublisher) Option {
	return func(uc *CirculationUseCase) { uc.publisher = p }
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.Logger) Option {
	return func(uc *CirculationUseCase) { uc.logger = l }
}

// NewCirculationUseCase создает экземпляр CirculationUseCase
func NewCirculationUseCase(authority CodeAuthority, opts ...Option) *CirculationUseCase {
	if authority == nil {
		panic("usecase.NewCirculationUseCase: nil authority")
	}
	uc := &CirculationUseCase{
		authority: authority,
		allocator: demand.Positional{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run выполняет процесс. Результат возвращается всегда, в том числе при ошибке
// шага: журнал показывает, докуда дошла обработка. Неподтверждённые отчёты
// на шаге 6 не ошибка, они дают final_status=partial.
func (uc *CirculationUseCase) Run(ctx context.Context, in Input) (*domain.WorkflowResult, error) {
	runID := in.RequestID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, span := tracing.StartApplication(ctx, "CirculationRun",
		trace.WithAttributes(attribute.String("run.id", runID), attribute.String("run.source", in.Source)))
	defer span.End()

	log := uc.logger.With(zap.String("run_id", runID))

	need := demand.Aggregate(in.Records)
	pool := demand.Match(in.Codes)
	shortfall := demand.ComputeShortfall(need, pool)
	if dropped := len(in.Codes) - pool.Total(); dropped > 0 {
		log.Debug("Коды без GTIN пропущены", zap.Int("dropped", dropped))
	}

	res := &domain.WorkflowResult{
		Success:       true,
		ProductsCount: len(in.Records),
		CodesCount:    len(in.Codes),
		GTINs:         need.GTINs(),
		CodesToOrder:  shortfall,
		Steps:         []domain.StepRecord{},
	}
	log.Info("Начало обработки",
		zap.Int("products", res.ProductsCount),
		zap.Int("codes", res.CodesCount),
		zap.Int("to_order", shortfall.Total()))

	err := uc.execute(ctx, log, res, pool, shortfall)
	if err != nil {
		res.Success = false
		res.Error = &domain.ErrorPayload{Kind: kindOf(err), Message: messageOf(err)}
		tracing.Fail(span, err)
		log.Error("Обработка прервана", zap.Error(err))
	} else {
		span.SetAttributes(attribute.String("run.final_status", string(res.FinalStatus)))
		log.Info("Обработка завершена", zap.String("final_status", string(res.FinalStatus)))
	}

	uc.publish(ctx, log, domain.ResultEvent{RunID: runID, Source: in.Source, Result: res})
	return res, err
}

func (uc *CirculationUseCase) execute(ctx context.Context, log *zap.Logger, res *domain.WorkflowResult,
	pool *domain.CodePool, shortfall domain.Shortfall) error {

	// Шаг 1: Авторизация
	if err := uc.step(ctx, res.BeginStep(domain.StepAuthenticate), func(ctx context.Context, rec *domain.StepRecord) error {
		if err := uc.authority.Authenticate(ctx); err != nil {
			return fail(rec, KindAuthentication, "Ошибка авторизации. Проверьте учетные данные", err)
		}
		log.Info("Авторизация успешна")
		return nil
	}); err != nil {
		return err
	}

	if len(shortfall) > 0 {
		var orderID string

		// Шаг 2: Заказ недостающих кодов
		if err := uc.step(ctx, res.BeginStep(domain.StepOrderCodes), func(ctx context.Context, rec *domain.StepRecord) error {
			log.Info("Заказ кодов", zap.Strings("gtins", gtinsOf(shortfall)), zap.Int("total", shortfall.Total()))
			id, err := uc.authority.OrderCodes(ctx, shortfall)
			if err == nil && id == "" {
				err = errors.New("эмитент не вернул номер заказа")
			}
			if err != nil {
				return fail(rec, KindOrderFailed, "Ошибка заказа кодов", err)
			}
			orderID = id
			rec.OrderID = id
			log.Info("Заказ создан", zap.String("order_id", id))
			return nil
		}); err != nil {
			return err
		}

		// Шаг 3: Ожидание выполнения заказа
		if err := uc.step(ctx, res.BeginStep(domain.StepAwaitOrder), func(ctx context.Context, rec *domain.StepRecord) error {
			rec.OrderID = orderID
			log.Info("Ожидание выполнения заказа", zap.String("order_id", orderID))
			err := uc.authority.AwaitOrder(ctx, orderID)
			switch {
			case err == nil:
				log.Info("Заказ выполнен", zap.String("order_id", orderID))
				return nil
			case errors.Is(err, poll.ErrRejected):
				return fail(rec, KindOrderRejected, "Заказ отклонен эмитентом", err)
			case errors.Is(err, poll.ErrTimeout):
				return fail(rec, KindOrderTimeout, "Заказ не выполнен в течение ожидаемого времени", err)
			default:
				return fail(rec, KindOrderFailed, "Ошибка проверки статуса заказа", err)
			}
		}); err != nil {
			return err
		}

		// Шаг 4: Скачивание полных кодов
		if err := uc.step(ctx, res.BeginStep(domain.StepDownloadCodes), func(ctx context.Context, rec *domain.StepRecord) error {
			codes, err := uc.authority.DownloadCodes(ctx, orderID)
			if err == nil && len(codes) == 0 {
				err = errors.New("эмитент вернул пустой список кодов")
			}
			if err != nil {
				return fail(rec, KindDownloadFailed, "Ошибка скачивания кодов", err)
			}
			rec.CodesCount = len(codes)

			alloc := uc.allocator.Allocate(pool, shortfall, codes)
			pool = alloc.Pool
			log.Info("Коды скачаны",
				zap.Int("downloaded", len(codes)),
				zap.Int("assigned", alloc.Assigned),
				zap.String("strategy", uc.allocator.Name()))
			if len(alloc.Unassigned) > 0 {
				log.Warn("Часть скачанных кодов не распределена по группам", zap.Int("unassigned", len(alloc.Unassigned)))
			}
			return nil
		}); err != nil {
			return err
		}
	}

	// Шаг 5: Отправка отчетов о вводе в оборот
	var reports []domain.ReportInfo
	if err := uc.step(ctx, res.BeginStep(domain.StepSubmitReports), func(ctx context.Context, rec *domain.StepRecord) error {
		for _, gtin := range pool.GTINs() {
			codes := pool.Codes(gtin)
			if len(codes) == 0 {
				continue
			}
			log.Info("Отправка отчета", zap.String("gtin", gtin), zap.Int("codes", len(codes)))
			id, err := uc.authority.SubmitReport(ctx, gtin, codes)
			if err == nil && id == "" {
				err = errors.New("эмитент не вернул номер отчета")
			}
			if err != nil {
				if ctx.Err() != nil {
					return fail(rec, KindReportSubmission, "Не удалось отправить отчеты", ctx.Err())
				}
				log.Warn("Не удалось создать отчет", zap.String("gtin", gtin), zap.Error(err))
				continue
			}
			log.Info("Отчет создан", zap.String("report_id", id), zap.String("gtin", gtin))
			reports = append(reports, domain.ReportInfo{GTIN: gtin, ReportID: id, CodesCount: len(codes)})
		}
		if len(reports) == 0 {
			return fail(rec, KindReportSubmission, "Не удалось отправить отчеты", nil)
		}
		rec.Reports = reports
		return nil
	}); err != nil {
		return err
	}

	// Шаг 6: Отслеживание статуса отчетов. Неподтверждённый отчёт не ошибка
	// процесса: остальные отчёты уже приняты. Отмена ожидания прерывает процесс.
	return uc.step(ctx, res.BeginStep(domain.StepAwaitReports), func(ctx context.Context, rec *domain.StepRecord) error {
		for _, r := range reports {
			log.Info("Проверка статуса отчета", zap.String("report_id", r.ReportID))
			err := uc.authority.AwaitReport(ctx, r.ReportID)
			if err == nil {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fail(rec, KindCanceled, "Обработка прервана", err)
			}
			log.Warn("Отчет не завершен", zap.String("report_id", r.ReportID), zap.Error(err))
			rec.Status = domain.StepWarning
			rec.UnconfirmedReportID = r.ReportID
			rec.Message = fmt.Sprintf("Некоторые отчеты не завершены: отчет %s (GTIN %s): %v", r.ReportID, r.GTIN, err)
			res.FinalStatus = domain.FinalPartial
			return nil
		}
		res.FinalStatus = domain.FinalCompleted
		log.Info("Все отчеты успешно завершены")
		return nil
	})
}

// step выполняет шаг в отдельном спане. Шаг, не выставивший статус сам,
// считается выполненным.
func (uc *CirculationUseCase) step(ctx context.Context, rec *domain.StepRecord,
	fn func(context.Context, *domain.StepRecord) error) error {

	ctx, span := tracing.StartApplication(ctx, fmt.Sprintf("Step%d", rec.Step))
	defer span.End()

	err := fn(ctx, rec)
	if err == nil && rec.Status == domain.StepInProgress {
		rec.Status = domain.StepCompleted
	}
	span.SetAttributes(tracing.StepAttributes(rec)...)
	tracing.Fail(span, err)
	return err
}

// fail отмечает шаг как неуспешный и строит ошибку процесса.
func fail(rec *domain.StepRecord, kind, message string, cause error) error {
	se := newStepError(rec.Step, kind, message, cause)
	rec.Status = domain.StepFailed
	rec.Error = se.Message
	return se
}

func (uc *CirculationUseCase) publish(ctx context.Context, log *zap.Logger, ev domain.ResultEvent) {
	if uc.publisher == nil {
		return
	}
	// Результат уже получен, публикация не должна зависеть от отмены запроса
	if err := uc.publisher.PublishResult(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("Не удалось опубликовать результат", zap.Error(err))
	}
}

func gtinsOf(s domain.Shortfall) []string {
	out := make([]string, len(s))
	for i, g := range s {
		out[i] = g.GTIN
	}
	return out
}

func kindOf(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind()
	}
	return "internal"
}

func messageOf(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

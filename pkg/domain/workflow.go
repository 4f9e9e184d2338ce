package domain

// StepStatus определяет состояние шага процесса ввода в оборот
type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepWarning    StepStatus = "warning"
)

// FinalStatus: итог процесса, дошедшего до шестого шага
type FinalStatus string

const (
	FinalCompleted FinalStatus = "completed"
	FinalPartial   FinalStatus = "partial"
)

// Номера и названия шагов
const (
	StepAuthenticate  = 1
	StepOrderCodes    = 2
	StepAwaitOrder    = 3
	StepDownloadCodes = 4
	StepSubmitReports = 5
	StepAwaitReports  = 6
)

// StepNames: названия шагов для журнала
var StepNames = map[int]string{
	StepAuthenticate:  "Авторизация в API",
	StepOrderCodes:    "Заказ недостающих кодов маркировки",
	StepAwaitOrder:    "Ожидание выполнения заказа",
	StepDownloadCodes: "Скачивание полных кодов",
	StepSubmitReports: "Отправка отчетов о вводе в оборот",
	StepAwaitReports:  "Отслеживание статуса отчетов",
}

// ReportInfo: отправленный отчёт о вводе в оборот по одной группе
type ReportInfo struct {
	GTIN       string `json:"gtin"`
	ReportID   string `json:"report_id"`
	CodesCount int    `json:"codes_count"`
}

// StepRecord: запись журнала выполнения
type StepRecord struct {
	Step       int          `json:"step"`
	Name       string       `json:"name"`
	Status     StepStatus   `json:"status"`
	OrderID    string       `json:"order_id,omitempty"`
	CodesCount int          `json:"codes_count,omitempty"`
	Reports    []ReportInfo `json:"reports,omitempty"`
	Error      string       `json:"error,omitempty"`
	Message    string       `json:"message,omitempty"`

	UnconfirmedReportID string `json:"unconfirmed_report_id,omitempty"`
}

// ErrorPayload описывает ошибку в ответе
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// WorkflowResult: результат одного запуска процесса
type WorkflowResult struct {
	Success       bool          `json:"success"`
	ProductsCount int           `json:"products_count"`
	CodesCount    int           `json:"codes_count"`
	GTINs         []string      `json:"gtins"`
	CodesToOrder  Shortfall     `json:"codes_to_order"`
	Steps         []StepRecord  `json:"steps"`
	FinalStatus   FinalStatus   `json:"final_status,omitempty"`
	Error         *ErrorPayload `json:"error,omitempty"`
}

// BeginStep добавляет запись шага со статусом in_progress.
// Указатель действителен до следующего вызова BeginStep.
func (r *WorkflowResult) BeginStep(step int) *StepRecord {
	r.Steps = append(r.Steps, StepRecord{
		Step:   step,
		Name:   StepNames[step],
		Status: StepInProgress,
	})
	return &r.Steps[len(r.Steps)-1]
}

// StepIndexes возвращает номера шагов журнала по порядку.
func (r *WorkflowResult) StepIndexes() []int {
	out := make([]int, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Step
	}
	return out
}

// ResultEvent публикуется в брокер после каждого запуска
type ResultEvent struct {
	RunID  string          `json:"run_id"`
	Source string          `json:"source"`
	Result *WorkflowResult `json:"result"`
}

package usecase

import (
	"context"
	"errors"
	"fmt"
)

// Виды ошибок шагов процесса
const (
	KindAuthentication   = "authentication_failed"
	KindOrderFailed      = "order_failed"
	KindOrderTimeout     = "order_timeout"
	KindOrderRejected    = "order_rejected"
	KindDownloadFailed   = "download_failed"
	KindReportSubmission = "report_submission_failed"
	KindCanceled         = "canceled"
)

// StepError: шаг процесса завершился ошибкой, остальные шаги не выполнялись.
type StepError struct {
	Step    int
	kind    string
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("шаг %d: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("шаг %d: %s: %v", e.Step, e.Message, e.Err)
}

func (e *StepError) Kind() string  { return e.kind }
func (e *StepError) Unwrap() error { return e.Err }

func newStepError(step int, kind, message string, err error) *StepError {
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = KindCanceled
		message = "Обработка прервана"
	}
	return &StepError{Step: step, kind: kind, Message: message, Err: err}
}

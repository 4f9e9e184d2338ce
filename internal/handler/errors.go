package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

// Виды ошибок входных данных, которые определяет сам обработчик
const (
	KindMissingFile = "missing_file"
	KindBadRequest  = "bad_request"
	KindInternal    = "internal"
)

const internalMessage = "Внутренняя ошибка сервера"

// kinder реализуют ошибки с классификацией
type kinder interface {
	Kind() string
}

// requestError: ошибка входного запроса
type requestError struct {
	kind    string
	message string
}

func (e *requestError) Error() string { return e.message }
func (e *requestError) Kind() string  { return e.kind }

// kindToStatus сопоставляет виды ошибок HTTP-статусам. Ошибки шагов
// процесса не перечислены и дают 500.
var kindToStatus = map[string]int{
	KindMissingFile:    http.StatusBadRequest,
	KindBadRequest:     http.StatusBadRequest,
	"decode_error":     http.StatusBadRequest,
	"malformed_record": http.StatusBadRequest,
	"invalid_quantity": http.StatusBadRequest,
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return KindInternal
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[errorKind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// errorPayload формирует тело ошибки. Текст внутренней ошибки (detail) уходит
// клиенту только вне боевого окружения.
func errorPayload(err error, production bool) *domain.ErrorPayload {
	kind := errorKind(err)
	if kind != KindInternal {
		return &domain.ErrorPayload{Kind: kind, Message: err.Error()}
	}
	p := &domain.ErrorPayload{Kind: kind, Message: internalMessage}
	if !production {
		p.Detail = err.Error()
	}
	return p
}

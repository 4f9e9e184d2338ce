// Package poll ждёт завершения операции у эмитента: проверка с фиксированным
// интервалом, ограниченная общим временем ожидания и контекстом.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
)

var (
	// ErrTimeout: операция не завершилась за отведённое время.
	ErrTimeout = errors.New("превышено время ожидания")
	// ErrRejected: эмитент завершил операцию с ошибкой.
	ErrRejected = errors.New("операция отклонена")
)

// Status: состояние операции на момент проверки.
type Status int

const (
	Pending Status = iota
	Done
	Failed
)

// CheckFunc запрашивает текущее состояние операции.
type CheckFunc func(ctx context.Context) (Status, error)

// Poller повторяет проверку, пока операция не завершится.
type Poller struct {
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// New создаёт Poller. Нулевой интервал заменяется секундой.
func New(c clock.Clock, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	if c == nil {
		c = clock.New()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{clock: c, interval: interval, timeout: timeout, logger: logger}
}

// Until проверяет состояние сразу и затем через каждый интервал.
// Ошибка самой проверки считается временной: ожидание продолжается.
func (p *Poller) Until(ctx context.Context, what string, check CheckFunc) error {
	deadline := p.clock.Now().Add(p.timeout)
	for attempt := 1; ; attempt++ {
		st, err := check(ctx)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.logger.Warn("Ошибка проверки статуса, повторим", zap.String("operation", what),
				zap.Int("attempt", attempt), zap.Error(err))
		case st == Done:
			return nil
		case st == Failed:
			return fmt.Errorf("%s: %w", what, ErrRejected)
		}

		if !p.clock.Now().Before(deadline) {
			return fmt.Errorf("%s: %w", what, ErrTimeout)
		}
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}

// sleep ждёт интервал или отмену контекста.
func (p *Poller) sleep(ctx context.Context) error {
	t := p.clock.Timer(p.interval)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package demand

import (
	"fmt"

	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

// Имена стратегий распределения
const (
	StrategyPositional = "positional"
	StrategyContent    = "content"
)

// Allocation: результат распределения скачанных кодов.
type Allocation struct {
	Pool       *domain.CodePool
	Assigned   int
	Unassigned []domain.Code
}

// Allocator распределяет скачанные коды по группам с недостачей.
type Allocator interface {
	Name() string
	Allocate(pool *domain.CodePool, shortfall domain.Shortfall, downloaded []domain.Code) Allocation
}

// NewAllocator возвращает стратегию по имени.
func NewAllocator(name string) (Allocator, error) {
	switch name {
	case "", StrategyPositional:
		return Positional{}, nil
	case StrategyContent:
		return ByContent{}, nil
	default:
		return nil, fmt.Errorf("неизвестная стратегия распределения: %q", name)
	}
}

// Positional режет общий список скачанных кодов по количествам заказа
// в порядке групп. GTIN внутри кода не сверяется: считается, что эмитент
// возвращает коды в порядке и количестве заказа.
type Positional struct{}

func (Positional) Name() string { return StrategyPositional }

func (Positional) Allocate(pool *domain.CodePool, shortfall domain.Shortfall, downloaded []domain.Code) Allocation {
	out := Allocation{Pool: pool.Clone()}
	rest := downloaded
	for _, g := range shortfall {
		n := min(g.Count, len(rest))
		out.Pool.Append(g.GTIN, rest[:n]...)
		out.Assigned += n
		rest = rest[n:]
	}
	out.Unassigned = append([]domain.Code(nil), rest...)
	return out
}

// ByContent относит код к группе по GTIN внутри кода и берёт не больше
// заказанного количества на группу.
type ByContent struct{}

func (ByContent) Name() string { return StrategyContent }

func (ByContent) Allocate(pool *domain.CodePool, shortfall domain.Shortfall, downloaded []domain.Code) Allocation {
	out := Allocation{Pool: pool.Clone()}
	left := make(map[string]int, len(shortfall))
	for _, g := range shortfall {
		left[g.GTIN] = g.Count
	}
	byGroup := make(map[string][]domain.Code)
	for _, c := range downloaded {
		gtin, ok := c.GTIN()
		if !ok || left[gtin] == 0 {
			out.Unassigned = append(out.Unassigned, c)
			continue
		}
		byGroup[gtin] = append(byGroup[gtin], c)
		left[gtin]--
		out.Assigned++
	}
	for _, g := range shortfall {
		out.Pool.Append(g.GTIN, byGroup[g.GTIN]...)
	}
	return out
}

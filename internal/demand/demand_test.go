package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

const (
	gtinA = "04660575291478"
	gtinB = "04660575291485"
)

func code(gtin, serial string) domain.Code {
	return domain.Code("01" + gtin + "21" + serial)
}

func poolOf(groups map[string]int) *domain.CodePool {
	p := &domain.CodePool{}
	for g, n := range groups {
		for i := 0; i < n; i++ {
			p.Append(g, code(g, "5s"+string(rune('a'+i))))
		}
	}
	return p
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	d := Aggregate([]domain.ProductRecord{
		{GTIN: "A", Quantity: 5},
		{GTIN: "B", Quantity: 2},
		{GTIN: "A", Quantity: 3},
	})

	assert.Equal(t, []string{"A", "B"}, d.GTINs())
	a, _ := d.Get("A")
	b, _ := d.Get("B")
	assert.Equal(t, 8, a)
	assert.Equal(t, 2, b)

	assert.Equal(t, 0, Aggregate(nil).Len())
}

func TestComputeShortfall(t *testing.T) {
	t.Parallel()

	demandAB := Aggregate([]domain.ProductRecord{{GTIN: "A", Quantity: 8}, {GTIN: "B", Quantity: 2}})

	tests := []struct {
		name   string
		demand *domain.GroupDemand
		pool   *domain.CodePool
		want   domain.Shortfall
	}{
		{
			name:   "partial_pool",
			demand: demandAB,
			pool:   poolOf(map[string]int{"A": 2, "B": 2}),
			want:   domain.Shortfall{{GTIN: "A", Count: 6}},
		},
		{
			name:   "empty_pool",
			demand: demandAB,
			pool:   &domain.CodePool{},
			want:   domain.Shortfall{{GTIN: "A", Count: 8}, {GTIN: "B", Count: 2}},
		},
		{
			name:   "demand_exceeded",
			demand: Aggregate([]domain.ProductRecord{{GTIN: "A", Quantity: 2}}),
			pool:   poolOf(map[string]int{"A": 3}),
			want:   domain.Shortfall{},
		},
		{
			name:   "pool_only_group_ignored",
			demand: Aggregate([]domain.ProductRecord{{GTIN: "A", Quantity: 1}}),
			pool:   poolOf(map[string]int{"A": 1, "C": 4}),
			want:   domain.Shortfall{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ComputeShortfall(tt.demand, tt.pool))
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	c1 := domain.Code("01" + gtinB + "21" + "5" + "&xE6jq>TVW<a")
	c2 := code(gtinA, "5GQNjOY")
	c3 := code(gtinB, "5second")
	foreign := domain.Code("02" + gtinB + "215zzz")
	short := domain.Code("0104660")

	pool := Match([]domain.Code{c1, foreign, c2, short, c3})

	assert.Equal(t, []string{gtinB, gtinA}, pool.GTINs())
	assert.Equal(t, []domain.Code{c1, c3}, pool.Codes(gtinB))
	assert.Equal(t, []domain.Code{c2}, pool.Codes(gtinA))
	assert.Equal(t, 3, pool.Total())
}

func TestPositionalAllocate(t *testing.T) {
	t.Parallel()

	pool := &domain.CodePool{}
	pool.Append(gtinA, code(gtinA, "5old"))
	shortfall := domain.Shortfall{{GTIN: gtinB, Count: 2}, {GTIN: gtinA, Count: 1}}
	// Коды намеренно перепутаны: позиционная стратегия их не сверяет.
	downloaded := []domain.Code{code(gtinA, "5n1"), code(gtinB, "5n2"), code(gtinB, "5n3"), code(gtinB, "5extra")}

	got := Positional{}.Allocate(pool, shortfall, downloaded)

	assert.Equal(t, []string{gtinA, gtinB}, got.Pool.GTINs())
	assert.Equal(t, []domain.Code{code(gtinA, "5n1"), code(gtinB, "5n2")}, got.Pool.Codes(gtinB))
	assert.Equal(t, []domain.Code{code(gtinA, "5old"), code(gtinB, "5n3")}, got.Pool.Codes(gtinA))
	assert.Equal(t, 3, got.Assigned)
	assert.Equal(t, []domain.Code{code(gtinB, "5extra")}, got.Unassigned)
	assert.Equal(t, 1, pool.Len(gtinA), "исходный пул не меняется")
}

func TestPositionalAllocateShortDownload(t *testing.T) {
	t.Parallel()

	got := Positional{}.Allocate(&domain.CodePool{}, domain.Shortfall{{GTIN: gtinA, Count: 3}, {GTIN: gtinB, Count: 1}},
		[]domain.Code{code(gtinA, "5x")})

	assert.Equal(t, 1, got.Pool.Len(gtinA))
	assert.Equal(t, 0, got.Pool.Len(gtinB))
	assert.Equal(t, 1, got.Assigned)
	assert.Empty(t, got.Unassigned)
}

func TestByContentAllocate(t *testing.T) {
	t.Parallel()

	shortfall := domain.Shortfall{{GTIN: gtinB, Count: 1}, {GTIN: gtinA, Count: 1}}
	downloaded := []domain.Code{code(gtinA, "5n1"), code(gtinB, "5n2"), code(gtinB, "5n3"), "garbage"}

	got := ByContent{}.Allocate(&domain.CodePool{}, shortfall, downloaded)

	assert.Equal(t, []string{gtinB, gtinA}, got.Pool.GTINs())
	assert.Equal(t, []domain.Code{code(gtinB, "5n2")}, got.Pool.Codes(gtinB))
	assert.Equal(t, []domain.Code{code(gtinA, "5n1")}, got.Pool.Codes(gtinA))
	assert.Equal(t, 2, got.Assigned)
	assert.Equal(t, []domain.Code{code(gtinB, "5n3"), "garbage"}, got.Unassigned)
}

func TestNewAllocator(t *testing.T) {
	t.Parallel()

	a, err := NewAllocator("")
	require.NoError(t, err)
	assert.Equal(t, StrategyPositional, a.Name())

	a, err = NewAllocator(StrategyContent)
	require.NoError(t, err)
	assert.Equal(t, StrategyContent, a.Name())

	_, err = NewAllocator("random")
	assert.Error(t, err)
}

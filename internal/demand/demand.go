// Package demand считает потребность в кодах по группам и распределяет коды по группам.
package demand

import "github.com/Vasiliy82/eaeu-circulation/pkg/domain"

// Aggregate суммирует количество по GTIN.
func Aggregate(records []domain.ProductRecord) *domain.GroupDemand {
	d := &domain.GroupDemand{}
	for _, r := range records {
		d.Add(r.GTIN, r.Quantity)
	}
	return d
}

// ComputeShortfall возвращает, сколько кодов не хватает по каждой группе с потребностью.
// Группы, которые есть только в пуле, не заказываются.
func ComputeShortfall(d *domain.GroupDemand, pool *domain.CodePool) domain.Shortfall {
	out := domain.Shortfall{}
	for _, gtin := range d.GTINs() {
		need, _ := d.Get(gtin)
		if missing := need - pool.Len(gtin); missing > 0 {
			out = append(out, domain.GroupCount{GTIN: gtin, Count: missing})
		}
	}
	return out
}

// Match раскладывает коды по группам по GTIN после маркера "01".
// Коды без маркера молча отбрасываются.
func Match(codes []domain.Code) *domain.CodePool {
	pool := &domain.CodePool{}
	for _, c := range codes {
		if gtin, ok := c.GTIN(); ok {
			pool.Append(gtin, c)
		}
	}
	return pool
}

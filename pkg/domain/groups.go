package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GroupDemand: потребность в кодах по GTIN. Группы упорядочены по
// первому появлению во входных данных.
type GroupDemand struct {
	gtins []string
	qty   map[string]int
}

// Add добавляет количество к группе.
func (d *GroupDemand) Add(gtin string, n int) {
	if d.qty == nil {
		d.qty = make(map[string]int)
	}
	if _, ok := d.qty[gtin]; !ok {
		d.gtins = append(d.gtins, gtin)
	}
	d.qty[gtin] += n
}

// Get возвращает суммарное количество для группы.
func (d *GroupDemand) Get(gtin string) (int, bool) {
	n, ok := d.qty[gtin]
	return n, ok
}

// GTINs возвращает группы в порядке появления.
func (d *GroupDemand) GTINs() []string {
	return append([]string(nil), d.gtins...)
}

// Len возвращает число групп.
func (d *GroupDemand) Len() int { return len(d.gtins) }

// CodePool: коды, уже привязанные к группам.
type CodePool struct {
	gtins []string
	codes map[string][]Code
}

// Append дописывает коды в конец списка группы. Пустой вызов группу не создаёт.
func (p *CodePool) Append(gtin string, codes ...Code) {
	if len(codes) == 0 {
		return
	}
	if p.codes == nil {
		p.codes = make(map[string][]Code)
	}
	if _, ok := p.codes[gtin]; !ok {
		p.gtins = append(p.gtins, gtin)
	}
	p.codes[gtin] = append(p.codes[gtin], codes...)
}

// Codes возвращает коды группы.
func (p *CodePool) Codes(gtin string) []Code { return p.codes[gtin] }

// Len возвращает число кодов в группе.
func (p *CodePool) Len(gtin string) int { return len(p.codes[gtin]) }

// GTINs возвращает группы в порядке появления.
func (p *CodePool) GTINs() []string {
	return append([]string(nil), p.gtins...)
}

// Total возвращает число кодов во всех группах.
func (p *CodePool) Total() int {
	n := 0
	for _, c := range p.codes {
		n += len(c)
	}
	return n
}

// Clone копирует пул, чтобы распределение новых кодов не меняло исходный.
func (p *CodePool) Clone() *CodePool {
	out := &CodePool{}
	for _, g := range p.gtins {
		out.Append(g, p.codes[g]...)
	}
	return out
}

// GroupCount: количество кодов для одной группы.
type GroupCount struct {
	GTIN  string
	Count int
}

// Shortfall: сколько кодов нужно дозаказать по каждой группе.
// Содержит только положительные значения.
type Shortfall []GroupCount

// Total возвращает общее число заказываемых кодов.
func (s Shortfall) Total() int {
	n := 0
	for _, g := range s {
		n += g.Count
	}
	return n
}

// Get возвращает недостачу по группе.
func (s Shortfall) Get(gtin string) int {
	for _, g := range s {
		if g.GTIN == gtin {
			return g.Count
		}
	}
	return 0
}

// MarshalJSON пишет объект {gtin: count} с ключами в порядке групп.
func (s Shortfall) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.GTIN)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", g.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON читает объект {gtin: count}, сохраняя порядок ключей.
func (s *Shortfall) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("shortfall: ожидался объект, получено %v", tok)
	}
	out := Shortfall{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("shortfall: неверный ключ %v", keyTok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("shortfall: значение для %s: %w", key, err)
		}
		out = append(out, GroupCount{GTIN: key, Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

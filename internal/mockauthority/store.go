package mockauthority

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

type order struct {
	id     string
	items  []orderItem
	polls  int
	status string
	codes  []string
}

type report struct {
	id     string
	gtin   string
	codes  int
	polls  int
	status string
	stuck  bool
}

// store: состояние имитатора в памяти
type store struct {
	mu      sync.Mutex
	tokens  map[string]struct{}
	orders  map[string]*order
	reports map[string]*report
}

func newStore() *store {
	return &store{
		tokens:  make(map[string]struct{}),
		orders:  make(map[string]*order),
		reports: make(map[string]*report),
	}
}

func (s *store) issueToken() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	return token
}

func (s *store) validToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *store) addOrder(items []orderItem, status string) *order {
	o := &order{id: uuid.NewString(), items: items, status: status}
	s.mu.Lock()
	s.orders[o.id] = o
	s.mu.Unlock()
	return o
}

// pollOrder возвращает статус заказа, переводя его в READY после readyAfter опросов
func (s *store) pollOrder(id string, readyAfter int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return "", false
	}
	if o.status == statusPending {
		o.polls++
		if o.polls > readyAfter {
			o.status = statusReady
			o.codes = generateCodes(o.items)
		}
	}
	return o.status, true
}

func (s *store) orderCodes(id string) ([]string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, "", false
	}
	return append([]string(nil), o.codes...), o.status, true
}

func (s *store) addReport(gtin string, codes int, stuck bool) *report {
	r := &report{id: uuid.NewString(), gtin: gtin, codes: codes, status: statusProcessing, stuck: stuck}
	s.mu.Lock()
	s.reports[r.id] = r
	s.mu.Unlock()
	return r
}

func (s *store) pollReport(id string, readyAfter int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return "", false
	}
	if r.status == statusProcessing && !r.stuck {
		r.polls++
		if r.polls > readyAfter {
			r.status = statusAccepted
		}
	}
	return r.status, true
}

// generateCodes выпускает коды вида 01<GTIN>215<серийный номер> в порядке позиций заказа
func generateCodes(items []orderItem) []string {
	var codes []string
	for _, it := range items {
		for i := 0; i < it.Quantity; i++ {
			serial := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
			codes = append(codes, "01"+it.GTIN+"215"+serial)
		}
	}
	return codes
}

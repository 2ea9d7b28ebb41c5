// Package identifier генерирует человекочитаемые номера заказов, счетов и отправлений.
package identifier

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	orderSuffixLen    = 6
	billSuffixLen     = 8
	trackingSuffixLen = 12
)

// Generator выдает случайные идентификаторы. Уникальность не гарантируется,
// ее обеспечивает уникальный индекс в БД и повтор на уровне сервиса.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New создает генератор на случайном сиде.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewWithSeed нужен для воспроизводимых последовательностей в тестах.
func NewWithSeed(seed1, seed2 uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// OrderID возвращает номер вида ORD-2025-AB12CD.
func (g *Generator) OrderID(year int) string {
	return fmt.Sprintf("ORD-%d-%s", year, g.random(orderSuffixLen))
}

// BillNumber возвращает номер вида BILL-2025-AB12CD34.
func (g *Generator) BillNumber(year int) string {
	return fmt.Sprintf("BILL-%d-%s", year, g.random(billSuffixLen))
}

// TrackingNumber возвращает номер вида TRKAB12CD34EF56.
func (g *Generator) TrackingNumber() string {
	return "TRK" + g.random(trackingSuffixLen)
}

// IntN возвращает число в [0, n).
func (g *Generator) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.IntN(n)
}

func (g *Generator) random(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.rnd.IntN(len(alphabet))])
	}
	return sb.String()
}

package service

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ReceiptGenerator issues human-readable receipt numbers. Uniqueness is
// best-effort; the unique index on sales.receipt_number is the real guard.
type ReceiptGenerator interface {
	Generate() string
}

// TimeReceiptGenerator formats REC-YYYYMMDD-NNNNNN where the suffix is the
// last six digits of the millisecond clock. The clock reading never repeats
// within a process: a call landing on an already used millisecond takes the
// next one.
type TimeReceiptGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	loc  *time.Location
	last int64
}

func NewReceiptGenerator(loc *time.Location) *TimeReceiptGenerator {
	return newReceiptGenerator(loc, time.Now)
}

func newReceiptGenerator(loc *time.Location, now func() time.Time) *TimeReceiptGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeReceiptGenerator{now: now, loc: loc}
}

func (g *TimeReceiptGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms

	return fmt.Sprintf("REC-%s-%06d", now.In(g.loc).Format("20060102"), ms%1_000_000)
}

// NormalizeReceipt trims and upper-cases a receipt number typed by hand.
func NormalizeReceipt(receiptNumber string) string {
	return strings.ToUpper(strings.TrimSpace(receiptNumber))
}

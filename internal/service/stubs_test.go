package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubSaleRepo is an in-memory SaleRepository. Transitions are guarded by
// the mutex so the conditional update is atomic like the SQL one.
type stubSaleRepo struct {
	mu    sync.Mutex
	sales map[string]*model.Sale
	users map[uuid.UUID]*model.User
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{
		sales: make(map[string]*model.Sale),
		users: make(map[uuid.UUID]*model.User),
	}
}

func (r *stubSaleRepo) addUser(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *stubSaleRepo) Create(_ context.Context, sale *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sales[sale.ReceiptNumber]; exists {
		return repository.ErrDuplicateKey
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	stored := *sale
	stored.Items = append([]model.SaleItem(nil), sale.Items...)
	r.sales[sale.ReceiptNumber] = &stored
	return nil
}

func (r *stubSaleRepo) FindByReceipt(_ context.Context, receiptNumber string) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[receiptNumber]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := r.enrich(*sale)
	return &out, nil
}

func (r *stubSaleRepo) List(_ context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Sale
	for _, sale := range r.sales {
		if filter.AgentID != nil && sale.AgentID != *filter.AgentID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.Matricule != "" {
			if filter.ExactMatricule && sale.BuyerMatricule != filter.Matricule {
				continue
			}
			if !filter.ExactMatricule && !strings.Contains(strings.ToLower(sale.BuyerMatricule), strings.ToLower(filter.Matricule)) {
				continue
			}
		}
		out = append(out, r.enrich(*sale))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ReceiptNumber > out[j].ReceiptNumber
	})

	total := int64(len(out))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r *stubSaleRepo) MarkValidated(_ context.Context, receiptNumber string, controllerID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[receiptNumber]
	if !ok || sale.Status != model.SaleStatusPending {
		return false, nil
	}
	sale.Status = model.SaleStatusValidated
	sale.ValidatedBy = &controllerID
	sale.ValidatedAt = &at
	return true, nil
}

func (r *stubSaleRepo) MarkCancelled(_ context.Context, receiptNumber string, agentID uuid.UUID, at time.Time, reason model.CancellationReason, note *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[receiptNumber]
	if !ok || sale.AgentID != agentID || sale.Status != model.SaleStatusPending {
		return false, nil
	}
	sale.Status = model.SaleStatusCancelled
	sale.CancelledBy = &agentID
	sale.CancelledAt = &at
	sale.CancellationReason = &reason
	sale.CancellationNote = note
	return true, nil
}

func (r *stubSaleRepo) enrich(sale model.Sale) model.Sale {
	sale.Agent = r.users[sale.AgentID]
	if sale.ValidatedBy != nil {
		sale.Validator = r.users[*sale.ValidatedBy]
	}
	if sale.CancelledBy != nil {
		sale.Canceller = r.users[*sale.CancelledBy]
	}
	sale.Items = append([]model.SaleItem(nil), sale.Items...)
	return sale
}

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

type stubProductRepo struct {
	products []model.Product
	err      error
}

func (r *stubProductRepo) ListAll(_ context.Context) ([]model.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.products, nil
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	err     error
}

func (r *stubAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.AuditLog
	for _, e := range r.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		matched = append(matched, e)
	}
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

func (r *stubAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

// stubTxManager runs fn directly; the stubs have no rollback.
type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []SaleEvent
}

func (n *recordingNotifier) Publish(event SaleEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// sequenceReceipts hands out a fixed list of receipt numbers, then repeats the last one.
type sequenceReceipts struct {
	mu      sync.Mutex
	numbers []string
	calls   int
}

func (g *sequenceReceipts) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	if idx >= len(g.numbers) {
		idx = len(g.numbers) - 1
	}
	g.calls++
	return g.numbers[idx]
}

var errStoreDown = errors.New("connection refused")

// ── Fixtures ──────────────────────────────────────────────────────────────────

var (
	riz50 = model.Product{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Riz", Weight: "50 KG", UnitPrice: 16500}
	riz25 = model.Product{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Riz", Weight: "25 KG", UnitPrice: 8250}
	mil50 = model.Product{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "Mil", Weight: "50 KG", UnitPrice: 6750}
)

type saleFixture struct {
	svc        SaleService
	sales      *stubSaleRepo
	audit      *stubAuditRepo
	notifier   *recordingNotifier
	agent      *model.User
	other      *model.User
	controller *model.User
	now        time.Time
}

func newSaleFixture(opts ...SaleOption) *saleFixture {
	f := &saleFixture{
		sales:      newStubSaleRepo(),
		audit:      &stubAuditRepo{},
		notifier:   &recordingNotifier{},
		agent:      &model.User{ID: uuid.New(), Username: "agent1", Name: "Awa Traoré", Role: model.RoleAgent},
		other:      &model.User{ID: uuid.New(), Username: "agent2", Name: "Moussa Koné", Role: model.RoleAgent},
		controller: &model.User{ID: uuid.New(), Username: "ctrl", Name: "Fatou Diallo", Role: model.RoleController},
		now:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	f.sales.addUser(f.agent)
	f.sales.addUser(f.other)
	f.sales.addUser(f.controller)

	var (
		clockMu sync.Mutex
		tick    int
	)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick++
		return f.now.Add(time.Duration(tick) * time.Second)
	}

	base := []SaleOption{WithNotifier(f.notifier), WithClock(clock)}
	f.svc = NewSaleService(
		f.sales,
		&stubProductRepo{products: []model.Product{riz50, riz25, mil50}},
		f.audit,
		stubTxManager{},
		newReceiptGenerator(time.UTC, clock),
		append(base, opts...)...,
	)
	return f
}

func buyer() BuyerRequest {
	return BuyerRequest{LastName: "Ouattara", FirstName: "Issa", Matricule: "M-1042", Grade: string(model.GradeOfficier)}
}

func lines(products ...model.Product) []SaleLineRequest {
	out := make([]SaleLineRequest, 0, len(products))
	for _, p := range products {
		out = append(out, SaleLineRequest{ProductID: p.ID.String(), Quantity: 1})
	}
	return out
}

package service

import (
	"context"
	"sync"
	"time"

	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubTx runs the unit of work inline without a database
type stubTx struct{}

func (stubTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

var _ repository.TransactionManager = stubTx{}

type stubUserRepo struct {
	users map[uuid.UUID]model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	for _, u := range r.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) ListEmployees(_ context.Context, parentID uuid.UUID) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.ParentID != nil && *u.ParentID == parentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = *u
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

type stubProductRepo struct {
	products map[uuid.UUID]model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]model.Product)}
}

func (r *stubProductRepo) add(ownerID uuid.UUID, name string, price int64, stock int) uuid.UUID {
	p := model.Product{ID: uuid.New(), OwnerID: ownerID, Name: name, Price: decimal.NewFromInt(price), Stock: stock}
	r.products[p.ID] = p
	return p.ID
}

func (r *stubProductRepo) stock(id uuid.UUID) int {
	return r.products[id].Stock
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = *p
	return nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.products[p.ID] = *p
	return nil
}

func (r *stubProductRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, ownerID, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubProductRepo) FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, ownerID, id)
}

func (r *stubProductRepo) List(_ context.Context, ownerID uuid.UUID, _, _ int, _ string) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) SetStock(_ context.Context, ownerID, id uuid.UUID, stock int) error {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil
	}
	p.Stock = stock
	r.products[id] = p
	return nil
}

func (r *stubProductRepo) AdjustStock(_ context.Context, ownerID, id uuid.UUID, delta int) error {
	p, ok := r.products[id]
	if !ok || p.OwnerID != ownerID {
		return nil
	}
	p.Stock += delta
	r.products[id] = p
	return nil
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// stubInvoiceRepo stores copies so callers cannot mutate persisted state by accident
type stubInvoiceRepo struct {
	invoices map[uuid.UUID]model.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]model.Invoice)}
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	inv.Items = append([]model.InvoiceItem(nil), inv.Items...)
	return inv
}

func (r *stubInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New()
		inv.Items[i].InvoiceID = inv.ID
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	inv.UpdatedAt = time.Now()
	// gorm runs the hook on every persist
	_ = inv.BeforeSave(nil)
	r.invoices[inv.ID] = cloneInvoice(*inv)
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, ownerID, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneInvoice(inv)
	return &c, nil
}

func (r *stubInvoiceRepo) FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByID(ctx, ownerID, id)
}

func (r *stubInvoiceRepo) FindByCorrelation(_ context.Context, ownerID, correlationID uuid.UUID) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.OwnerID == ownerID && inv.CorrelationID != nil && *inv.CorrelationID == correlationID {
			c := cloneInvoice(inv)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) List(_ context.Context, ownerID uuid.UUID, filter repository.InvoiceFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.OwnerID == ownerID && (filter.Status == "" || inv.Status == filter.Status) {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) UpdatePayment(_ context.Context, inv *model.Invoice) error {
	_ = inv.BeforeSave(nil)
	stored := r.invoices[inv.ID]
	stored.AmountPaid = inv.AmountPaid
	stored.Status = inv.Status
	stored.UpdatedAt = time.Now()
	r.invoices[inv.ID] = stored
	return nil
}

func (r *stubInvoiceRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *stubInvoiceRepo) Customers(_ context.Context, ownerID uuid.UUID) ([]model.Customer, error) {
	byName := map[string]*model.Customer{}
	var order []string
	for _, inv := range r.invoices {
		if inv.OwnerID != ownerID || inv.CustomerName == model.WalkInCustomer {
			continue
		}
		c, ok := byName[inv.CustomerName]
		if !ok {
			c = &model.Customer{Name: inv.CustomerName, Phone: inv.CustomerPhone}
			byName[inv.CustomerName] = c
			order = append(order, inv.CustomerName)
		}
		c.InvoiceCount++
		c.OutstandingDebt = c.OutstandingDebt.Add(inv.RemainingDebt())
	}
	out := make([]model.Customer, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

type stubExpenseRepo struct {
	expenses map[uuid.UUID]model.Expense
}

func newStubExpenseRepo() *stubExpenseRepo {
	return &stubExpenseRepo{expenses: make(map[uuid.UUID]model.Expense)}
}

func (r *stubExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.expenses[e.ID] = *e
	return nil
}

func (r *stubExpenseRepo) FindByID(_ context.Context, ownerID, id uuid.UUID) (*model.Expense, error) {
	e, ok := r.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *stubExpenseRepo) List(_ context.Context, ownerID uuid.UUID, category string, _, _ int) ([]model.Expense, int64, error) {
	var out []model.Expense
	for _, e := range r.expenses {
		if e.OwnerID == ownerID && (category == "" || e.Category == category) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubExpenseRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	e, ok := r.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.expenses, id)
	return nil
}

var _ repository.ExpenseRepository = (*stubExpenseRepo)(nil)

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (r *stubAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, ownerID uuid.UUID, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range r.entries {
		if e.OwnerID == ownerID && (action == "" || e.Action == action) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

// recordingPublisher captures published realtime events
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ string, event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

var _ EventPublisher = (*recordingPublisher)(nil)

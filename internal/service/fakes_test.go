package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"billbook/internal/events"
	"billbook/internal/model"
	"billbook/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory stand-ins for the gorm repositories. They keep just enough
// behaviour for the services: ids are assigned on create, missing rows return
// gorm.ErrRecordNotFound and reads hand out copies.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// --- parties ---

type fakePartyRepo struct {
	mu      sync.Mutex
	parties map[uuid.UUID]model.Party
}

func newFakePartyRepo() *fakePartyRepo {
	return &fakePartyRepo{parties: map[uuid.UUID]model.Party{}}
}

func (r *fakePartyRepo) add(p model.Party) *model.Party {
	assignID(&p.ID)
	r.mu.Lock()
	r.parties[p.ID] = p
	r.mu.Unlock()
	return &p
}

func (r *fakePartyRepo) Create(_ context.Context, p *model.Party) error {
	assignID(&p.ID)
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[p.ID] = *p
	return nil
}

func (r *fakePartyRepo) Update(_ context.Context, p *model.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[p.ID] = *p
	return nil
}

func (r *fakePartyRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parties, id)
	return nil
}

func (r *fakePartyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakePartyRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.FilterMap(ids, func(id uuid.UUID, _ int) (model.Party, bool) {
		p, ok := r.parties[id]
		return p, ok
	}), nil
}

func (r *fakePartyRepo) List(_ context.Context, filter repository.PartyListFilter) ([]model.Party, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Filter(lo.Values(r.parties), func(p model.Party, _ int) bool {
		switch filter.Type {
		case model.PartyTypeClient:
			if !p.IsClient() {
				return false
			}
		case model.PartyTypeVendor:
			if !p.IsVendor() {
				return false
			}
		}
		return filter.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search))
	})
	slices.SortFunc(out, func(a, b model.Party) int { return strings.Compare(a.Name, b.Name) })
	return out, int64(len(out)), nil
}

func (r *fakePartyRepo) FindWithOpeningBalance(_ context.Context) ([]model.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(lo.Values(r.parties), func(p model.Party, _ int) bool { return !p.OpeningBalance.IsZero() }), nil
}

// --- items ---

type fakeItemRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]model.Item
	movements []model.StockMovement
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[uuid.UUID]model.Item{}}
}

func (r *fakeItemRepo) add(it model.Item) *model.Item {
	assignID(&it.ID)
	r.mu.Lock()
	r.items[it.ID] = it
	r.mu.Unlock()
	return &it
}

func (r *fakeItemRepo) stock(id uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].CurrentStock
}

func (r *fakeItemRepo) Create(_ context.Context, it *model.Item) error {
	assignID(&it.ID)
	it.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = *it
	return nil
}

// Update keeps the stored stock, like the real Omit("current_stock").
func (r *fakeItemRepo) Update(_ context.Context, it *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *it
	cp.CurrentStock = r.items[it.ID].CurrentStock
	r.items[it.ID] = cp
	return nil
}

func (r *fakeItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &it, nil
}

func (r *fakeItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeItemRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.FilterMap(ids, func(id uuid.UUID, _ int) (model.Item, bool) {
		it, ok := r.items[id]
		return it, ok
	}), nil
}

func (r *fakeItemRepo) FindBySKU(_ context.Context, sku string) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU == sku {
			return &it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeItemRepo) List(_ context.Context, _, _ int, search string) ([]model.Item, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Filter(lo.Values(r.items), func(it model.Item, _ int) bool {
		return search == "" || strings.Contains(strings.ToLower(it.Name), strings.ToLower(search))
	})
	return out, int64(len(out)), nil
}

func (r *fakeItemRepo) UpdateStock(_ context.Context, id uuid.UUID, stock decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	it.CurrentStock = stock
	r.items[id] = it
	return nil
}

func (r *fakeItemRepo) CreateMovement(_ context.Context, m *model.StockMovement) error {
	assignID(&m.ID)
	m.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeItemRepo) ListMovements(_ context.Context, itemID uuid.UUID, _, _ int) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Filter(r.movements, func(m model.StockMovement, _ int) bool { return m.ItemID == itemID })
	return out, int64(len(out)), nil
}

// --- khata ---

type fakeKhataRepo struct {
	mu      sync.Mutex
	entries []model.KhataEntry
}

func (r *fakeKhataRepo) Create(_ context.Context, e *model.KhataEntry) error {
	assignID(&e.ID)
	e.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeKhataRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = lo.Reject(r.entries, func(e model.KhataEntry, _ int) bool { return e.ID == id })
	return nil
}

func (r *fakeKhataRepo) DeleteByReference(_ context.Context, refType string, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = lo.Reject(r.entries, func(e model.KhataEntry, _ int) bool {
		return e.ReferenceType == refType && e.ReferenceID != nil && *e.ReferenceID == refID
	})
	return nil
}

func (r *fakeKhataRepo) FindByID(_ context.Context, id uuid.UUID) (*model.KhataEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := lo.Find(r.entries, func(e model.KhataEntry) bool { return e.ID == id })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

// inRange returns the party's entries within the filter dates, oldest first.
func (r *fakeKhataRepo) inRange(filter repository.KhataListFilter) []model.KhataEntry {
	out := lo.Filter(r.entries, func(e model.KhataEntry, _ int) bool {
		if e.PartyID != filter.PartyID {
			return false
		}
		if filter.From != nil && e.EntryDate.Before(*filter.From) {
			return false
		}
		return filter.To == nil || !e.EntryDate.After(*filter.To)
	})
	slices.SortStableFunc(out, func(a, b model.KhataEntry) int { return a.EntryDate.Compare(b.EntryDate) })
	return out
}

func (r *fakeKhataRepo) List(_ context.Context, filter repository.KhataListFilter) ([]model.KhataEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.inRange(filter)
	offset := (filter.Page - 1) * filter.Limit
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+filter.Limit, len(all))
	return all[offset:end], int64(len(all)), nil
}

func (r *fakeKhataRepo) SignedSumBefore(_ context.Context, filter repository.KhataListFilter, skip int) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	if filter.From != nil {
		for _, e := range r.entries {
			if e.PartyID == filter.PartyID && e.EntryDate.Before(*filter.From) {
				sum = sum.Add(e.Signed())
			}
		}
	}
	for i, e := range r.inRange(filter) {
		if i >= skip {
			break
		}
		sum = sum.Add(e.Signed())
	}
	return sum, nil
}

func (r *fakeKhataRepo) Totals(_ context.Context, partyID uuid.UUID) (repository.PartyTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := repository.PartyTotals{PartyID: partyID}
	for _, e := range r.entries {
		if e.PartyID != partyID {
			continue
		}
		if e.EntryType == model.EntryDebit {
			t.Debit = t.Debit.Add(e.Amount)
		} else {
			t.Credit = t.Credit.Add(e.Amount)
		}
	}
	return t, nil
}

func (r *fakeKhataRepo) TotalsByParty(ctx context.Context) ([]repository.PartyTotals, error) {
	r.mu.Lock()
	ids := lo.Uniq(lo.Map(r.entries, func(e model.KhataEntry, _ int) uuid.UUID { return e.PartyID }))
	r.mu.Unlock()
	out := make([]repository.PartyTotals, 0, len(ids))
	for _, id := range ids {
		t, _ := r.Totals(ctx, id)
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeKhataRepo) byReference(refType string, refID uuid.UUID) []model.KhataEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.entries, func(e model.KhataEntry, _ int) bool {
		return e.ReferenceType == refType && e.ReferenceID != nil && *e.ReferenceID == refID
	})
}

// --- payments, audit ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []model.Payment
}

func (r *fakePaymentRepo) Create(_ context.Context, p *model.Payment) error {
	assignID(&p.ID)
	p.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, *p)
	return nil
}

func (r *fakePaymentRepo) ListByDocument(_ context.Context, docType string, docID uuid.UUID) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.payments, func(p model.Payment, _ int) bool {
		return p.DocumentType == docType && p.DocumentID == docID
	}), nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	assignID(&entry.ID)
	entry.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, filter repository.AuditListFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Filter(r.logs, func(l model.AuditLog, _ int) bool {
		return (filter.Action == "" || l.Action == filter.Action) && (filter.EntityID == "" || l.EntityID == filter.EntityID)
	})
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.logs, func(l model.AuditLog, _ int) string { return l.Action })
}

// --- tax rules ---

type fakeTaxRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]model.TaxRule
}

func newFakeTaxRuleRepo() *fakeTaxRuleRepo {
	return &fakeTaxRuleRepo{rules: map[uuid.UUID]model.TaxRule{}}
}

func (r *fakeTaxRuleRepo) Create(_ context.Context, rule *model.TaxRule) error {
	assignID(&rule.ID)
	rule.CreatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeTaxRuleRepo) Update(_ context.Context, rule *model.TaxRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeTaxRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *fakeTaxRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TaxRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rule, nil
}

func (r *fakeTaxRuleRepo) List(_ context.Context, hsnPrefix string, _, _ int) ([]model.TaxRule, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Filter(lo.Values(r.rules), func(rule model.TaxRule, _ int) bool {
		return hsnPrefix == "" || strings.HasPrefix(rule.HSNPrefix, hsnPrefix)
	})
	return out, int64(len(out)), nil
}

func (r *fakeTaxRuleRepo) FindActiveForHSN(_ context.Context, hsnCode string, day time.Time) (*model.TaxRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.TaxRule
	for _, rule := range r.rules {
		if !rule.ActiveOn(day) || !strings.HasPrefix(hsnCode, rule.HSNPrefix) {
			continue
		}
		if best == nil || len(rule.HSNPrefix) > len(best.HSNPrefix) {
			rule := rule
			best = &rule
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *fakeTaxRuleRepo) FindOverlapping(_ context.Context, hsnPrefix string, from time.Time, to *time.Time, excludeID *uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rule := range r.rules {
		if rule.HSNPrefix != hsnPrefix || (excludeID != nil && rule.ID == *excludeID) {
			continue
		}
		startsBeforeEnd := to == nil || !rule.EffectiveFrom.After(*to)
		endsAfterStart := rule.EffectiveTo == nil || !rule.EffectiveTo.Before(from)
		if startsBeforeEnd && endsAfterStart {
			n++
		}
	}
	return n, nil
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	assignID(&u.ID)
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID.String()] = *u
	return nil
}

func (r *fakeUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID.String() == id })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Values(r.users)
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID.String()] = *u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// --- documents ---

// fakeDocRepo stores documents of one kind. The accessors reach the fields
// the generic repository addresses by column name.
type fakeDocRepo[D any, L any] struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]D
	id       func(*D) *uuid.UUID
	number   func(*D) string
	setLines func(*D, []L)
	stamp    func(*D)
}

func (r *fakeDocRepo[D, L]) Create(_ context.Context, doc *D) error {
	assignID(r.id(doc))
	r.stamp(doc)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[*r.id(doc)] = *doc
	return nil
}

func (r *fakeDocRepo[D, L]) Update(_ context.Context, doc *D) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[*r.id(doc)] = *doc
	return nil
}

func (r *fakeDocRepo[D, L]) ReplaceLines(_ context.Context, docID uuid.UUID, lines []L) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.setLines(&doc, lines)
	r.docs[docID] = doc
	return nil
}

func (r *fakeDocRepo[D, L]) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo[D, L]) FindByID(_ context.Context, id uuid.UUID) (*D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &doc, nil
}

func (r *fakeDocRepo[D, L]) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*D, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeDocRepo[D, L]) List(_ context.Context, _ repository.DocumentListFilter) ([]D, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := lo.Values(r.docs)
	return out, int64(len(out)), nil
}

func (r *fakeDocRepo[D, L]) LastNumber(_ context.Context, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := ""
	for _, doc := range r.docs {
		if n := r.number(&doc); strings.HasPrefix(n, prefix) && n > last {
			last = n
		}
	}
	return last, nil
}

func (r *fakeDocRepo[D, L]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func newFakeInvoiceRepo() *fakeDocRepo[model.Invoice, model.InvoiceItem] {
	return &fakeDocRepo[model.Invoice, model.InvoiceItem]{
		docs:     map[uuid.UUID]model.Invoice{},
		id:       func(d *model.Invoice) *uuid.UUID { return &d.ID },
		number:   func(d *model.Invoice) string { return d.InvoiceNo },
		setLines: func(d *model.Invoice, l []model.InvoiceItem) { d.Items = l },
		stamp:    func(d *model.Invoice) { d.CreatedAt, d.UpdatedAt = time.Now(), time.Now() },
	}
}

func newFakeOrderRepo() *fakeDocRepo[model.Order, model.OrderItem] {
	return &fakeDocRepo[model.Order, model.OrderItem]{
		docs:     map[uuid.UUID]model.Order{},
		id:       func(d *model.Order) *uuid.UUID { return &d.ID },
		number:   func(d *model.Order) string { return d.OrderNo },
		setLines: func(d *model.Order, l []model.OrderItem) { d.Items = l },
		stamp:    func(d *model.Order) { d.CreatedAt, d.UpdatedAt = time.Now(), time.Now() },
	}
}

func newFakePurchaseBillRepo() *fakeDocRepo[model.PurchaseBill, model.PurchaseBillItem] {
	return &fakeDocRepo[model.PurchaseBill, model.PurchaseBillItem]{
		docs:     map[uuid.UUID]model.PurchaseBill{},
		id:       func(d *model.PurchaseBill) *uuid.UUID { return &d.ID },
		number:   func(d *model.PurchaseBill) string { return d.BillNo },
		setLines: func(d *model.PurchaseBill, l []model.PurchaseBillItem) { d.Items = l },
		stamp:    func(d *model.PurchaseBill) { d.CreatedAt, d.UpdatedAt = time.Now(), time.Now() },
	}
}

// --- collaborators ---

// fixedRates resolves every HSN code to the same rate.
type fixedRates struct{ rate decimal.Decimal }

func (r fixedRates) RateFor(context.Context, string, time.Time) (decimal.Decimal, error) {
	return r.rate, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.events, func(e events.Event, _ int) events.Type { return e.Type })
}

type memBalanceCache struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
}

func newMemBalanceCache() *memBalanceCache {
	return &memBalanceCache{balances: map[uuid.UUID]decimal.Decimal{}}
}

func (c *memBalanceCache) Get(_ context.Context, id uuid.UUID) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.balances[id]
	return b, ok, nil
}

func (c *memBalanceCache) Set(_ context.Context, id uuid.UUID, b decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[id] = b
	return nil
}

func (c *memBalanceCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.balances, id)
	return nil
}

func (c *memBalanceCache) has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.balances[id]
	return ok
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

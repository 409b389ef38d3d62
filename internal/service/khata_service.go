package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"billbook/internal/cache"
	"billbook/internal/events"
	"billbook/internal/metrics"
	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"
	"billbook/pkg/pagination"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type KhataEntryRequest struct {
	PartyID     string `json:"party_id" binding:"required"`
	EntryType   string `json:"entry_type" binding:"required,oneof=DEBIT CREDIT"`
	Amount      string `json:"amount" binding:"required"`
	EntryDate   string `json:"entry_date"` // YYYY-MM-DD, defaults to today
	Description string `json:"description"`
}

type KhataEntryResponse struct {
	ID             string `json:"id"`
	PartyID        string `json:"party_id"`
	EntryType      string `json:"entry_type"`
	Amount         string `json:"amount"`
	EntryDate      string `json:"entry_date"`
	Description    string `json:"description"`
	ReferenceType  string `json:"reference_type"`
	ReferenceID    string `json:"reference_id,omitempty"`
	RunningBalance string `json:"running_balance,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// KhataStatementResponse is one page of a party's ledger. OpeningBalance is the
// balance before the first entry on the page.
type KhataStatementResponse struct {
	PartyID        string               `json:"party_id"`
	PartyName      string               `json:"party_name"`
	OpeningBalance string               `json:"opening_balance"`
	ClosingBalance string               `json:"closing_balance"`
	Entries        []KhataEntryResponse `json:"entries"`
}

type BalanceResponse struct {
	PartyID        string `json:"party_id"`
	PartyName      string `json:"party_name"`
	OpeningBalance string `json:"opening_balance"`
	TotalDebit     string `json:"total_debit,omitempty"`
	TotalCredit    string `json:"total_credit,omitempty"`
	Balance        string `json:"balance"` // positive: the party owes us
	Cached         bool   `json:"cached"`
}

type PartyBalanceResponse struct {
	PartyID string `json:"party_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
}

type KhataSummaryResponse struct {
	TotalReceivable string                 `json:"total_receivable"`
	TotalPayable    string                 `json:"total_payable"`
	Net             string                 `json:"net"`
	Parties         []PartyBalanceResponse `json:"parties"`
}

type KhataListQuery struct {
	From  string
	To    string
	Page  int
	Limit int
}

// Ledger posts and removes document-driven khata entries. Both calls must run
// inside the caller's transaction.
type Ledger interface {
	Post(ctx context.Context, entry *model.KhataEntry) error
	Unpost(ctx context.Context, partyID uuid.UUID, refType string, refID uuid.UUID) error
}

type KhataService interface {
	Ledger
	AddEntry(ctx context.Context, userID string, req KhataEntryRequest) (KhataEntryResponse, error)
	DeleteEntry(ctx context.Context, userID, id string) error
	ListEntries(ctx context.Context, partyID string, query KhataListQuery) (KhataStatementResponse, int64, error)
	Balance(ctx context.Context, partyID string) (BalanceResponse, error)
	Summary(ctx context.Context) (KhataSummaryResponse, error)
}

type khataService struct {
	repo       repository.KhataRepository
	partyRepo  repository.PartyRepository
	txManager  repository.TransactionManager
	audit      auditor
	cache      cache.BalanceCache
	dispatcher *events.Dispatcher
}

func NewKhataService(
	repo repository.KhataRepository,
	partyRepo repository.PartyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	balanceCache cache.BalanceCache,
	dispatcher *events.Dispatcher,
) KhataService {
	if balanceCache == nil {
		balanceCache = cache.NoopBalanceCache{}
	}
	return &khataService{
		repo:       repo,
		partyRepo:  partyRepo,
		txManager:  txManager,
		audit:      auditor{repo: auditRepo},
		cache:      balanceCache,
		dispatcher: dispatcher,
	}
}

// --- Postings ---

func (s *khataService) Post(ctx context.Context, entry *model.KhataEntry) error {
	if !entry.Amount.IsPositive() {
		return apperror.NewBadRequestError("khata amount must be greater than zero")
	}
	if entry.EntryType != model.EntryDebit && entry.EntryType != model.EntryCredit {
		return apperror.NewBadRequestError("invalid khata entry type " + entry.EntryType)
	}
	if entry.ReferenceType == "" {
		entry.ReferenceType = model.RefManual
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = today()
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to post khata entry: %w", err)
	}
	metrics.KhataPostings.WithLabelValues(entry.EntryType, entry.ReferenceType).Inc()

	posted := toKhataEntryResponse(*entry)
	repository.AfterCommit(ctx, func() {
		bg := context.WithoutCancel(ctx)
		s.invalidate(bg, entry.PartyID)
		s.dispatcher.Dispatch(bg, events.KhataEntryCreated, posted.ID, posted)
	})
	return nil
}

func (s *khataService) Unpost(ctx context.Context, partyID uuid.UUID, refType string, refID uuid.UUID) error {
	if err := s.repo.DeleteByReference(ctx, refType, refID); err != nil {
		return fmt.Errorf("failed to remove khata postings: %w", err)
	}
	repository.AfterCommit(ctx, func() {
		bg := context.WithoutCancel(ctx)
		s.invalidate(bg, partyID)
		s.dispatcher.Dispatch(bg, events.KhataEntryDeleted, refID.String(), map[string]string{
			"party_id":       partyID.String(),
			"reference_type": refType,
			"reference_id":   refID.String(),
		})
	})
	return nil
}

func (s *khataService) invalidate(ctx context.Context, partyID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, partyID); err != nil {
		log.Printf("khata: failed to invalidate cached balance for %s: %v", partyID, err)
	}
}

// --- Manual entries ---

func (s *khataService) AddEntry(ctx context.Context, userID string, req KhataEntryRequest) (KhataEntryResponse, error) {
	partyID, err := parseID(req.PartyID, "party")
	if err != nil {
		return KhataEntryResponse{}, err
	}

	var fieldErrors []apperror.FieldError
	amount, perr := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if perr != nil || !amount.IsPositive() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "amount", Message: "must be a number greater than zero"})
	}
	entryDate, fe := parseDate("entry_date", req.EntryDate, today())
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		return KhataEntryResponse{}, apperror.NewValidationError(fieldErrors)
	}

	entry := model.KhataEntry{
		PartyID:       partyID,
		EntryType:     req.EntryType,
		Amount:        amount.Round(2),
		EntryDate:     entryDate,
		Description:   req.Description,
		ReferenceType: model.RefManual,
		CreatedBy:     actorID(userID),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		party, err := s.partyRepo.FindByID(txCtx, partyID)
		if err != nil {
			return notFound(err, "Party")
		}
		if err := s.Post(txCtx, &entry); err != nil {
			return err
		}
		return s.audit.log(txCtx, userID, model.ActionCreateKhataEntry, entry.ID.String(), party.Name, req)
	})
	if err != nil {
		return KhataEntryResponse{}, err
	}

	return toKhataEntryResponse(entry), nil
}

// DeleteEntry removes a manual entry. Document postings are removed only with
// their document.
func (s *khataService) DeleteEntry(ctx context.Context, userID, id string) error {
	entryID, err := parseID(id, "khata entry")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.repo.FindByID(txCtx, entryID)
		if err != nil {
			return notFound(err, "Khata entry")
		}
		if entry.ReferenceType != model.RefManual {
			return apperror.NewConflictError("only manual khata entries can be deleted; delete the " +
				strings.ToLower(strings.ReplaceAll(entry.ReferenceType, "_", " ")) + " instead")
		}
		if err := s.repo.Delete(txCtx, entryID); err != nil {
			return fmt.Errorf("failed to delete khata entry: %w", err)
		}

		deleted := toKhataEntryResponse(*entry)
		repository.AfterCommit(txCtx, func() {
			bg := context.WithoutCancel(ctx)
			s.invalidate(bg, entry.PartyID)
			s.dispatcher.Dispatch(bg, events.KhataEntryDeleted, deleted.ID, deleted)
		})
		return s.audit.log(txCtx, userID, model.ActionDeleteKhataEntry, entry.ID.String(), entry.Description, deleted)
	})
}

// --- Reads ---

func (s *khataService) ListEntries(ctx context.Context, partyID string, query KhataListQuery) (KhataStatementResponse, int64, error) {
	id, err := parseID(partyID, "party")
	if err != nil {
		return KhataStatementResponse{}, 0, err
	}

	var fieldErrors []apperror.FieldError
	from, fe := parseOptionalDate("from", query.From)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	to, fe := parseOptionalDate("to", query.To)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		return KhataStatementResponse{}, 0, apperror.NewValidationError(fieldErrors)
	}

	party, err := s.partyRepo.FindByID(ctx, id)
	if err != nil {
		return KhataStatementResponse{}, 0, notFound(err, "Party")
	}

	page := pagination.New(query.Page, query.Limit)
	filter := repository.KhataListFilter{PartyID: id, From: from, To: to, Page: page.Page, Limit: page.Limit}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return KhataStatementResponse{}, 0, fmt.Errorf("failed to fetch khata entries: %w", err)
	}
	before, err := s.repo.SignedSumBefore(ctx, filter, page.Offset)
	if err != nil {
		return KhataStatementResponse{}, 0, fmt.Errorf("failed to compute running balance: %w", err)
	}

	opening := party.OpeningBalance.Add(before)
	running := opening
	res := make([]KhataEntryResponse, 0, len(entries))
	for _, e := range entries {
		running = running.Add(e.Signed())
		r := toKhataEntryResponse(e)
		r.RunningBalance = money(running)
		res = append(res, r)
	}

	return KhataStatementResponse{
		PartyID:        party.ID.String(),
		PartyName:      party.Name,
		OpeningBalance: money(opening),
		ClosingBalance: money(running),
		Entries:        res,
	}, total, nil
}

func (s *khataService) Balance(ctx context.Context, partyID string) (BalanceResponse, error) {
	id, err := parseID(partyID, "party")
	if err != nil {
		return BalanceResponse{}, err
	}

	party, err := s.partyRepo.FindByID(ctx, id)
	if err != nil {
		return BalanceResponse{}, notFound(err, "Party")
	}
	res := BalanceResponse{
		PartyID:        party.ID.String(),
		PartyName:      party.Name,
		OpeningBalance: money(party.OpeningBalance),
	}

	if cached, ok, err := s.cache.Get(ctx, id); err != nil {
		log.Printf("khata: balance cache read failed for %s: %v", id, err)
	} else if ok {
		res.Balance = money(cached)
		res.Cached = true
		return res, nil
	}

	totals, err := s.repo.Totals(ctx, id)
	if err != nil {
		return BalanceResponse{}, fmt.Errorf("failed to compute balance: %w", err)
	}
	balance := party.OpeningBalance.Add(totals.Debit).Sub(totals.Credit)

	if err := s.cache.Set(ctx, id, balance); err != nil {
		log.Printf("khata: balance cache write failed for %s: %v", id, err)
	}

	res.TotalDebit = money(totals.Debit)
	res.TotalCredit = money(totals.Credit)
	res.Balance = money(balance)
	return res, nil
}

// Summary splits every non-zero party balance into receivable and payable.
func (s *khataService) Summary(ctx context.Context) (KhataSummaryResponse, error) {
	rows, err := s.repo.TotalsByParty(ctx)
	if err != nil {
		return KhataSummaryResponse{}, fmt.Errorf("failed to aggregate khata: %w", err)
	}
	withOpening, err := s.partyRepo.FindWithOpeningBalance(ctx)
	if err != nil {
		return KhataSummaryResponse{}, fmt.Errorf("failed to fetch parties: %w", err)
	}

	ids := lo.Uniq(append(
		lo.Map(rows, func(r repository.PartyTotals, _ int) uuid.UUID { return r.PartyID }),
		lo.Map(withOpening, func(p model.Party, _ int) uuid.UUID { return p.ID })...,
	))
	parties, err := s.partyRepo.FindByIDs(ctx, ids)
	if err != nil {
		return KhataSummaryResponse{}, fmt.Errorf("failed to fetch parties: %w", err)
	}
	byParty := lo.KeyBy(rows, func(r repository.PartyTotals) uuid.UUID { return r.PartyID })

	receivable, payable := decimal.Zero, decimal.Zero
	balances := make([]PartyBalanceResponse, 0, len(parties))
	for _, p := range parties {
		t := byParty[p.ID]
		balance := p.OpeningBalance.Add(t.Debit).Sub(t.Credit)
		switch {
		case balance.IsPositive():
			receivable = receivable.Add(balance)
		case balance.IsNegative():
			payable = payable.Add(balance.Neg())
		default:
			continue
		}
		balances = append(balances, PartyBalanceResponse{
			PartyID: p.ID.String(),
			Name:    p.Name,
			Type:    p.Type,
			Balance: money(balance),
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Name < balances[j].Name })

	return KhataSummaryResponse{
		TotalReceivable: money(receivable),
		TotalPayable:    money(payable),
		Net:             money(receivable.Sub(payable)),
		Parties:         balances,
	}, nil
}

func toKhataEntryResponse(e model.KhataEntry) KhataEntryResponse {
	return KhataEntryResponse{
		ID:            e.ID.String(),
		PartyID:       e.PartyID.String(),
		EntryType:     e.EntryType,
		Amount:        money(e.Amount),
		EntryDate:     formatDate(e.EntryDate),
		Description:   e.Description,
		ReferenceType: e.ReferenceType,
		ReferenceID:   optionalID(e.ReferenceID),
		CreatedAt:     e.CreatedAt.Format(dateTimeLayout),
	}
}

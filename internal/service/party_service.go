package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- Party DTOs ---

type CreatePartyRequest struct {
	Name           string `json:"name" binding:"required"`
	Type           string `json:"type" binding:"required,oneof=CLIENT VENDOR BOTH"`
	GSTIN          string `json:"gstin"`
	StateCode      string `json:"state_code"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	OpeningBalance string `json:"opening_balance"` // positive: the party owes us
}

type UpdatePartyRequest struct {
	Name           *string `json:"name"`
	Type           *string `json:"type" binding:"omitempty,oneof=CLIENT VENDOR BOTH"`
	GSTIN          *string `json:"gstin"`
	StateCode      *string `json:"state_code"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Address        *string `json:"address"`
	OpeningBalance *string `json:"opening_balance"`
	IsActive       *bool   `json:"is_active"`
}

type PartyResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	GSTIN          string    `json:"gstin"`
	StateCode      string    `json:"state_code"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	OpeningBalance string    `json:"opening_balance"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// --- Interface ---

type PartyService interface {
	CreateParty(ctx context.Context, userID string, req CreatePartyRequest) (PartyResponse, error)
	UpdateParty(ctx context.Context, userID, id string, req UpdatePartyRequest) (PartyResponse, error)
	DeleteParty(ctx context.Context, userID, id string) error
	GetParty(ctx context.Context, id string) (PartyResponse, error)
	ListParties(ctx context.Context, partyType, search string, page, limit int) ([]PartyResponse, int64, error)
}

type partyService struct {
	repo      repository.PartyRepository
	txManager repository.TransactionManager
	audit     auditor
}

func NewPartyService(
	repo repository.PartyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PartyService {
	return &partyService{repo: repo, txManager: txManager, audit: auditor{repo: auditRepo}}
}

// --- Helpers ---

// validateParty checks contact details and derives the state code from the GSTIN.
func validateParty(p *model.Party) error {
	var fieldErrors []apperror.FieldError

	if strings.TrimSpace(p.Name) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "is required"})
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "email", Message: "is not a valid email address"})
		}
	}
	if p.GSTIN != "" {
		p.GSTIN = strings.ToUpper(p.GSTIN)
		if len(p.GSTIN) != 15 || !isDigits(p.GSTIN[:2]) {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "gstin", Message: "must be 15 characters starting with the state code"})
		} else if p.StateCode == "" {
			p.StateCode = p.GSTIN[:2]
		}
	}
	if p.StateCode != "" && (len(p.StateCode) != 2 || !isDigits(p.StateCode)) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "state_code", Message: "must be two digits"})
	}

	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func parseMoneyField(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.NewValidationError([]apperror.FieldError{{Field: field, Message: "must be a number"}})
	}
	return d.Round(2), nil
}

// --- Implementation ---

func (s *partyService) CreateParty(ctx context.Context, userID string, req CreatePartyRequest) (PartyResponse, error) {
	opening, err := parseMoneyField("opening_balance", req.OpeningBalance)
	if err != nil {
		return PartyResponse{}, err
	}

	party := model.Party{
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		GSTIN:          strings.TrimSpace(req.GSTIN),
		StateCode:      strings.TrimSpace(req.StateCode),
		Phone:          req.Phone,
		Email:          strings.TrimSpace(req.Email),
		Address:        req.Address,
		OpeningBalance: opening,
		IsActive:       true,
	}
	if err := validateParty(&party); err != nil {
		return PartyResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &party); err != nil {
			return fmt.Errorf("failed to create party: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionCreateParty, party.ID.String(), party.Name, req)
	})
	if err != nil {
		return PartyResponse{}, err
	}

	return toPartyResponse(party), nil
}

func (s *partyService) UpdateParty(ctx context.Context, userID, id string, req UpdatePartyRequest) (PartyResponse, error) {
	partyID, err := parseID(id, "party")
	if err != nil {
		return PartyResponse{}, err
	}

	var party *model.Party
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		party, err = s.repo.FindByID(txCtx, partyID)
		if err != nil {
			return notFound(err, "Party")
		}

		if req.Name != nil {
			party.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			party.Type = *req.Type
		}
		if req.GSTIN != nil {
			party.GSTIN = strings.TrimSpace(*req.GSTIN)
		}
		if req.StateCode != nil {
			party.StateCode = strings.TrimSpace(*req.StateCode)
		}
		if req.Phone != nil {
			party.Phone = *req.Phone
		}
		if req.Email != nil {
			party.Email = strings.TrimSpace(*req.Email)
		}
		if req.Address != nil {
			party.Address = *req.Address
		}
		if req.OpeningBalance != nil {
			opening, err := parseMoneyField("opening_balance", *req.OpeningBalance)
			if err != nil {
				return err
			}
			party.OpeningBalance = opening
		}
		if req.IsActive != nil {
			party.IsActive = *req.IsActive
		}

		if err := validateParty(party); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, party); err != nil {
			return fmt.Errorf("failed to update party: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionUpdateParty, party.ID.String(), party.Name, req)
	})
	if err != nil {
		return PartyResponse{}, err
	}

	return toPartyResponse(*party), nil
}

func (s *partyService) DeleteParty(ctx context.Context, userID, id string) error {
	partyID, err := parseID(id, "party")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		party, err := s.repo.FindByID(txCtx, partyID)
		if err != nil {
			return notFound(err, "Party")
		}
		if err := s.repo.Delete(txCtx, partyID); err != nil {
			return fmt.Errorf("failed to delete party: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionDeleteParty, party.ID.String(), party.Name, nil)
	})
}

func (s *partyService) GetParty(ctx context.Context, id string) (PartyResponse, error) {
	partyID, err := parseID(id, "party")
	if err != nil {
		return PartyResponse{}, err
	}
	party, err := s.repo.FindByID(ctx, partyID)
	if err != nil {
		return PartyResponse{}, notFound(err, "Party")
	}
	return toPartyResponse(*party), nil
}

func (s *partyService) ListParties(ctx context.Context, partyType, search string, page, limit int) ([]PartyResponse, int64, error) {
	parties, total, err := s.repo.List(ctx, repository.PartyListFilter{
		Type:   partyType,
		Search: search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch parties: %w", err)
	}
	return lo.Map(parties, func(p model.Party, _ int) PartyResponse { return toPartyResponse(p) }), total, nil
}

func toPartyResponse(p model.Party) PartyResponse {
	return PartyResponse{
		ID:             p.ID,
		Name:           p.Name,
		Type:           p.Type,
		GSTIN:          p.GSTIN,
		StateCode:      p.StateCode,
		Phone:          p.Phone,
		Email:          p.Email,
		Address:        p.Address,
		OpeningBalance: money(p.OpeningBalance),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

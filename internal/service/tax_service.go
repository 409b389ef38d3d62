package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type TaxRuleRequest struct {
	Name          string `json:"name" binding:"required"`
	HSNPrefix     string `json:"hsn_prefix"`                       // empty applies to every HSN code
	RatePercent   string `json:"rate_percent" binding:"required"`   // e.g. "18"
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, empty for open ended
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	HSNPrefix     string  `json:"hsn_prefix"`
	RatePercent   string  `json:"rate_percent"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveTaxRateResponse struct {
	HSNCode     string `json:"hsn_code"`
	Date        string `json:"date"`
	RatePercent string `json:"rate_percent"`
	RuleID      string `json:"rule_id,omitempty"` // empty when the configured default applies
	RuleName    string `json:"rule_name,omitempty"`
}

// --- Interface ---

type TaxService interface {
	TaxRateResolver
	ListRules(ctx context.Context, hsnPrefix string, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateRule(ctx context.Context, userID string, req TaxRuleRequest) (TaxRuleResponse, error)
	UpdateRule(ctx context.Context, userID, id string, req TaxRuleRequest) (TaxRuleResponse, error)
	DeleteRule(ctx context.Context, userID, id string) error
	ActiveRate(ctx context.Context, hsnCode string, day time.Time) (ActiveTaxRateResponse, error)
}

type taxService struct {
	repo        repository.TaxRuleRepository
	txManager   repository.TransactionManager
	audit       auditor
	defaultRate decimal.Decimal
}

func NewTaxService(
	repo repository.TaxRuleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	defaultRate decimal.Decimal,
) TaxService {
	return &taxService{
		repo:        repo,
		txManager:   txManager,
		audit:       auditor{repo: auditRepo},
		defaultRate: defaultRate,
	}
}

// --- Implementation ---

func (s *taxService) ListRules(ctx context.Context, hsnPrefix string, page, limit int) ([]TaxRuleResponse, int64, error) {
	rules, total, err := s.repo.List(ctx, hsnPrefix, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}
	return lo.Map(rules, func(r model.TaxRule, _ int) TaxRuleResponse { return toTaxRuleResponse(r) }), total, nil
}

func (s *taxService) CreateRule(ctx context.Context, userID string, req TaxRuleRequest) (TaxRuleResponse, error) {
	rule := model.TaxRule{}
	if err := applyTaxRuleRequest(&rule, req); err != nil {
		return TaxRuleResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, rule, nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create tax rule: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionCreateTaxRule, rule.ID.String(), rule.Name, req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(rule), nil
}

func (s *taxService) UpdateRule(ctx context.Context, userID, id string, req TaxRuleRequest) (TaxRuleResponse, error) {
	ruleID, err := parseID(id, "tax rule")
	if err != nil {
		return TaxRuleResponse{}, err
	}

	var rule *model.TaxRule
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rule, err = s.repo.FindByID(txCtx, ruleID)
		if err != nil {
			return notFound(err, "Tax rule")
		}
		if err := applyTaxRuleRequest(rule, req); err != nil {
			return err
		}
		if err := s.checkOverlap(txCtx, *rule, &ruleID); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, rule); err != nil {
			return fmt.Errorf("failed to update tax rule: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionUpdateTaxRule, rule.ID.String(), rule.Name, req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(*rule), nil
}

func (s *taxService) DeleteRule(ctx context.Context, userID, id string) error {
	ruleID, err := parseID(id, "tax rule")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rule, err := s.repo.FindByID(txCtx, ruleID)
		if err != nil {
			return notFound(err, "Tax rule")
		}
		if err := s.repo.Delete(txCtx, ruleID); err != nil {
			return fmt.Errorf("failed to delete tax rule: %w", err)
		}
		return s.audit.log(txCtx, userID, model.ActionDeleteTaxRule, rule.ID.String(), rule.Name, nil)
	})
}

// RateFor returns the rate of the longest HSN prefix rule in force on day,
// falling back to the configured default rate.
func (s *taxService) RateFor(ctx context.Context, hsnCode string, day time.Time) (decimal.Decimal, error) {
	rule, err := s.repo.FindActiveForHSN(ctx, hsnCode, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultRate, nil
		}
		return decimal.Zero, fmt.Errorf("failed to query tax rule: %w", err)
	}
	return rule.RatePercent, nil
}

func (s *taxService) ActiveRate(ctx context.Context, hsnCode string, day time.Time) (ActiveTaxRateResponse, error) {
	res := ActiveTaxRateResponse{HSNCode: hsnCode, Date: formatDate(day), RatePercent: money(s.defaultRate)}

	rule, err := s.repo.FindActiveForHSN(ctx, hsnCode, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, nil
		}
		return ActiveTaxRateResponse{}, fmt.Errorf("failed to query tax rule: %w", err)
	}

	res.RatePercent = money(rule.RatePercent)
	res.RuleID = rule.ID.String()
	res.RuleName = rule.Name
	return res, nil
}

// --- Helpers ---

func applyTaxRuleRequest(rule *model.TaxRule, req TaxRuleRequest) error {
	var fieldErrors []apperror.FieldError

	rate, err := decimal.NewFromString(strings.TrimSpace(req.RatePercent))
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "rate_percent", Message: "must be a number between 0 and 100"})
	}
	from, fe := parseDate("effective_from", req.EffectiveFrom, time.Time{})
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	to, fe := parseOptionalDate("effective_to", req.EffectiveTo)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if to != nil && fe == nil && to.Before(from) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "effective_to", Message: "must not be before effective_from"})
	}
	prefix := strings.TrimSpace(req.HSNPrefix)
	if len(prefix) > 8 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "hsn_prefix", Message: "must be at most 8 digits"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}

	rule.Name = strings.TrimSpace(req.Name)
	rule.HSNPrefix = prefix
	rule.RatePercent = rate
	rule.EffectiveFrom = from
	rule.EffectiveTo = to
	rule.Description = req.Description
	return nil
}

func (s *taxService) checkOverlap(ctx context.Context, rule model.TaxRule, excludeID *uuid.UUID) error {
	count, err := s.repo.FindOverlapping(ctx, rule.HSNPrefix, rule.EffectiveFrom, rule.EffectiveTo, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return apperror.NewConflictError(fmt.Sprintf("overlapping tax rule exists for HSN prefix %q in the given date range", rule.HSNPrefix))
	}
	return nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	return TaxRuleResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		HSNPrefix:     r.HSNPrefix,
		RatePercent:   money(r.RatePercent),
		EffectiveFrom: formatDate(r.EffectiveFrom),
		EffectiveTo:   formatOptionalDate(r.EffectiveTo),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(dateTimeLayout),
	}
}

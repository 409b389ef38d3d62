package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"billbook/internal/model"
	"billbook/internal/repository"

	"github.com/samber/lo"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Username   string          `json:"username"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details,omitempty" swaggertype:"object"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action, entityID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, action, entityID string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, repository.AuditListFilter{
		Action:   strings.ToUpper(action),
		EntityID: entityID,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return lo.Map(logs, func(l model.AuditLog, _ int) AuditLogResponse { return toAuditLogResponse(l) }), total, nil
}

func toAuditLogResponse(l model.AuditLog) AuditLogResponse {
	res := AuditLogResponse{
		ID:         l.ID.String(),
		Username:   "System",
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		CreatedAt:  l.CreatedAt.Format(dateTimeLayout),
	}
	if l.UserID != nil {
		res.UserID = l.UserID.String()
	}
	if l.User != nil {
		res.Username = l.User.Username
	}
	if len(l.Details) > 0 {
		res.Details = json.RawMessage(l.Details)
	}
	return res
}

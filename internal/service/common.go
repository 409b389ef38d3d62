package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"billbook/internal/model"
	"billbook/internal/repository"
	"billbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05Z07:00"
)

func parseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NewBadRequestError("invalid " + resource + " id")
	}
	return id, nil
}

// notFound converts gorm.ErrRecordNotFound into a 404 and wraps anything else.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFoundError(resource)
	}
	return fmt.Errorf("failed to fetch %s: %w", resource, err)
}

// actorID returns the acting user's id, or nil for system calls.
func actorID(userID string) *uuid.UUID {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return &id
}

// parseDate parses a YYYY-MM-DD field. An empty value yields fallback.
func parseDate(field, raw string, fallback time.Time) (time.Time, *apperror.FieldError) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, &apperror.FieldError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

func parseOptionalDate(field, raw string) (*time.Time, *apperror.FieldError) {
	if raw == "" {
		return nil, nil
	}
	d, fe := parseDate(field, raw, time.Time{})
	if fe != nil {
		return nil, fe
	}
	return &d, nil
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// nextNumber returns the next document number for prefix, formatted
// PREFIX-YYYYMMDD-00001. It continues after the highest number issued today,
// so deleting a document never hands its successor's number out again.
func nextNumber(ctx context.Context, prefix string, last func(context.Context, string) (string, error)) (string, error) {
	full := fmt.Sprintf("%s-%s-", prefix, time.Now().Format("20060102"))
	latest, err := last(ctx, full)
	if err != nil {
		return "", fmt.Errorf("failed to read last %s number: %w", prefix, err)
	}

	n := 0
	if latest != "" {
		n, err = strconv.Atoi(strings.TrimPrefix(latest, full))
		if err != nil {
			return "", fmt.Errorf("malformed %s number %q: %w", prefix, latest, err)
		}
	}
	return fmt.Sprintf("%s%05d", full, n+1), nil
}

// auditor writes audit entries inside the caller's transaction.
type auditor struct {
	repo repository.AuditRepository
}

func (a auditor) log(ctx context.Context, userID, action, entityID, entityName string, details any) error {
	entry := &model.AuditLog{
		UserID:     actorID(userID),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			log.Printf("audit: failed to encode details for %s %s: %v", action, entityID, err)
		} else {
			entry.Details = datatypes.JSON(raw)
		}
	}
	if err := a.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"testing"

	"billbook/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_GetAuditLogs(t *testing.T) {
	auditRepo := &fakeAuditRepo{}
	parties := NewPartyService(newFakePartyRepo(), auditRepo, fakeTxManager{})
	ctx := context.Background()

	actor := uuid.New()
	created, err := parties.CreateParty(ctx, actor.String(), CreatePartyRequest{Name: "Kaveri Textiles", Type: model.PartyTypeClient})
	require.NoError(t, err)
	phone := "080 2222 3333"
	_, err = parties.UpdateParty(ctx, "", created.ID.String(), UpdatePartyRequest{Phone: &phone})
	require.NoError(t, err)

	svc := NewAuditService(auditRepo)

	all, total, err := svc.GetAuditLogs(ctx, "", created.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	first := all[0]
	assert.Equal(t, model.ActionCreateParty, first.Action)
	assert.Equal(t, actor.String(), first.UserID)
	assert.Equal(t, "Kaveri Textiles", first.EntityName)

	var details map[string]any
	require.NoError(t, json.Unmarshal(first.Details, &details))
	assert.Equal(t, "Kaveri Textiles", details["name"])

	// System actions have no user.
	updates, _, err := svc.GetAuditLogs(ctx, "update_party", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].UserID)
	assert.Equal(t, "System", updates[0].Username)
}

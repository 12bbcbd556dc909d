package repository_test

import (
	"context"
	"testing"
	"time"

	"salesdesk/internal/model"
	"salesdesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	audit := repository.NewAuditRepository(f.db)

	entries := []model.AuditLog{
		{UserID: &f.agent.ID, Action: model.ActionCreateSale, EntityID: "REC-20260314-000001", CreatedAt: f.base},
		{UserID: &f.controller.ID, Action: model.ActionValidateSale, EntityID: "REC-20260314-000001", CreatedAt: f.base.Add(time.Minute)},
		{UserID: &f.agent.ID, Action: model.ActionCreateSale, EntityID: "REC-20260314-000002", CreatedAt: f.base.Add(2 * time.Minute)},
		{Action: model.ActionCreateUser, EntityID: "agent1", CreatedAt: f.base.Add(3 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, audit.Log(ctx, &entries[i]))
	}

	all, total, err := audit.List(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.Equal(t, model.ActionCreateUser, all[0].Action)
	assert.Nil(t, all[0].User)

	history, total, err := audit.List(ctx, repository.AuditFilter{EntityID: "REC-20260314-000001"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, history, 2)
	assert.Equal(t, model.ActionValidateSale, history[0].Action)
	require.NotNil(t, history[0].User)
	assert.Equal(t, "ctrl", history[0].User.Username)
	assert.Empty(t, history[0].User.Password)

	creates, total, err := audit.List(ctx, repository.AuditFilter{Action: model.ActionCreateSale, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, creates, 1)
	assert.Equal(t, "REC-20260314-000001", creates[0].EntityID)
}

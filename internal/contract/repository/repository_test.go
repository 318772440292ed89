package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestFindByIDForUpdate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Contract{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	orgID := node.Generate()

	repo := New()
	contract := &domain.Contract{
		ID:                 node.Generate(),
		OrgID:              orgID,
		LicenseeName:       "Acme Toys",
		Slug:               "acme-" + node.Generate().String(),
		Status:             domain.ContractStatusActive,
		Rate:               datatypes.JSON([]byte(`{"type":"flat","rate":0.05}`)),
		RoyaltyBase:        domain.RoyaltyBaseNet,
		ReportingFrequency: domain.FrequencyQuarterly,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Currency:           "USD",
	}
	require.NoError(t, db.Create(contract).Error)

	// The locking clause has to degrade cleanly on dialects without
	// SELECT ... FOR UPDATE, sqlite included.
	err = db.Transaction(func(tx *gorm.DB) error {
		found, err := repo.FindByIDForUpdate(context.Background(), tx, orgID, contract.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, contract.ID, found.ID)

		missing, err := repo.FindByIDForUpdate(context.Background(), tx, orgID, node.Generate())
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

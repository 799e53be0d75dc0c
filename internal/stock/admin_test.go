package stock

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatolabs/bookstore-backend/pkg/db"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

func newTestAdmin(t *testing.T, client *db.Client) Admin {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	ledger, err := NewLedger(logg)
	require.NoError(t, err)
	adminSvc, err := NewAdmin(ledger, client, logg)
	require.NoError(t, err)
	return adminSvc
}

func TestAdminAdjustCreatesAndOverwrites(t *testing.T) {
	conn := setupStockTestDB(t)
	adminSvc := newTestAdmin(t, db.NewWithConn(conn))
	productID := uuid.New()

	record, err := adminSvc.Adjust(context.Background(), productID, 25, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, record.Available)
	assert.Equal(t, 0, record.Reserved)

	record, err = adminSvc.Adjust(context.Background(), productID, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, record.Available)
	assert.Equal(t, 2, record.Reserved)
}

func TestAdminAdjustOverridesReservedHolds(t *testing.T) {
	conn := setupStockTestDB(t)
	adminSvc := newTestAdmin(t, db.NewWithConn(conn))
	productID := uuid.New()
	seedStock(t, conn, productID, 10, 6)

	record, err := adminSvc.Adjust(context.Background(), productID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Available)
	assert.Equal(t, 0, record.Reserved)
}

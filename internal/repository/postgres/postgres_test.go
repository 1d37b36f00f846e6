package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/repository/postgres"
)

func TestStore_RunInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE parking_slots SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.RunInTx(ctx, func(repos repository.Repositories) error {
			return repos.Slots.SetStatus(ctx, 4, domain.SlotStatusAvailable)
		})
		assert.NoError(t, err)
	})

	t.Run("Rollback On Error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(repos repository.Repositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Rollback On Domain Error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE parking_slots SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.RunInTx(ctx, func(repos repository.Repositories) error {
			return repos.Slots.Claim(ctx, 1, 4, domain.SlotStatusOccupied)
		})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

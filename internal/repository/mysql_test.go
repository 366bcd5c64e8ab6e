package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"plus-api/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockRepository(t *testing.T, d dialect) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLRepository(db, d), mock
}

func TestMySQLRepository_GrantUsesAffectedRows(t *testing.T) {
	repo, mock := newMockRepository(t, mysqlDialect)
	ctx := context.Background()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE user_id = user_id"))
	prep.ExpectExec().
		WithArgs("user-1", int64(3), "tbx-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("user-1", int64(4), "tbx-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var inserted []model.Grant
	err := repo.InTx(ctx, func(tx Tx) error {
		var err error
		inserted, err = tx.GrantOwnership(ctx, "user-1", []model.Grant{
			{CosmeticID: 3, TransactionID: "tbx-1"},
			{CosmeticID: 4, TransactionID: "tbx-1"},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Grant{{CosmeticID: 3, TransactionID: "tbx-1"}}, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_GetOrCreateUserRereadsWithLock(t *testing.T) {
	repo, mock := newMockRepository(t, mysqlDialect)
	ctx := context.Background()
	player := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at FROM users WHERE player_uuid = ?")).
		WithArgs(player.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE id = id")).
		WithArgs(sqlmock.AnyArg(), player.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE player_uuid = ? LOCK IN SHARE MODE")).
		WithArgs(player.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("user-from-other-tx", fixedTime))
	mock.ExpectCommit()

	var user *model.User
	err := repo.InTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetOrCreateUser(ctx, player)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "user-from-other-tx", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_SetActiveRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepository(t, mysqlDialect)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_cosmetics SET active = (cosmetic_id = ?)")).
		WithArgs(int64(7), "user-1", "cape").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.InTx(ctx, func(tx Tx) error {
		id := int64(7)
		return tx.SetActive(ctx, "user-1", model.CategoryCape, &id)
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateCosmeticUsesReturning(t *testing.T) {
	repo, mock := newMockRepository(t, postgresDialect)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cosmetics (category, path) VALUES ($1, $2) RETURNING id")).
		WithArgs("emote", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	c, err := repo.CreateCosmetic(ctx, model.CategoryEmote, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

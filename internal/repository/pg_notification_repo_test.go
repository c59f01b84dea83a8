package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/repository"
)

const (
	deliveredUpdate = `SET status = 'delivered'`
	failedUpdate    = `SET status = 'failed'`
	existsQuery     = `SELECT EXISTS`
)

func setupPg(t *testing.T) (repository.NotificationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return repository.NewPgNotificationRepository(mock), mock
}

func TestPgMarkDelivered_Pending(t *testing.T) {
	repo, mock := setupPg(t)
	at := time.Now().UTC()

	mock.ExpectExec(deliveredUpdate).
		WithArgs(at, 2, "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkDelivered(context.Background(), "n1", at, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgMarkDelivered_AlreadySettled(t *testing.T) {
	repo, mock := setupPg(t)
	at := time.Now().UTC()

	mock.ExpectExec(deliveredUpdate).
		WithArgs(at, 1, "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(existsQuery).
		WithArgs("n1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.MarkDelivered(context.Background(), "n1", at, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgMarkFailed_Unknown(t *testing.T) {
	repo, mock := setupPg(t)

	mock.ExpectExec(failedUpdate).
		WithArgs("smtp down", 3, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(existsQuery).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.MarkFailed(context.Background(), "ghost", "smtp down", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgMarkFailed_AlreadySettled(t *testing.T) {
	repo, mock := setupPg(t)

	mock.ExpectExec(failedUpdate).
		WithArgs("late", 2, "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(existsQuery).
		WithArgs("n1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.MarkFailed(context.Background(), "n1", "late", 2)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgMarkDelivered_ExecError(t *testing.T) {
	repo, mock := setupPg(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(deliveredUpdate).
		WithArgs(pgxmock.AnyArg(), 1, "n1").
		WillReturnError(boom)

	err := repo.MarkDelivered(context.Background(), "n1", time.Now(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgMarkRead_Unknown(t *testing.T) {
	repo, mock := setupPg(t)

	mock.ExpectExec(`SET read_at = COALESCE`).
		WithArgs(pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkRead(context.Background(), "ghost", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetByID_NotFound(t *testing.T) {
	repo, mock := setupPg(t)

	mock.ExpectQuery(`FROM notifications\s+WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateMany_BeginError(t *testing.T) {
	repo, mock := setupPg(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err := repo.CreateMany(context.Background(), []*domain.Notification{{ID: "a"}})
	assert.ErrorContains(t, err, "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

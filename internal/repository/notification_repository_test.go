package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestNotificationRepositoryMarkReadForeignID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs("n1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n1", "u2", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestNotificationRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	items := []models.Notification{{UserID: "u1", Title: "a"}, {UserID: "u2", Title: "b"}}
	require.NoError(t, repo.CreateBatch(context.Background(), items))
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

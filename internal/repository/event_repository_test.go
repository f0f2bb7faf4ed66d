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

var eventRowColumns = []string{"id", "title", "description", "event_type", "start_at", "end_at", "location", "course_id", "created_by", "created_at", "updated_at"}

func TestEventRepositoryListWindowAndCourses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	start := from.Add(9 * time.Hour)
	course := "c1"

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_events WHERE end_at >= $1 AND start_at < $2 AND (course_id IS NULL OR course_id = ANY($3)) ORDER BY start_at ASC LIMIT 20 OFFSET 0")).
		WithArgs(from, to, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow("e1", "Midterm", "", "EXAM", start, start.Add(2*time.Hour), nil, course, "admin-1", from, from).
			AddRow("e2", "Founders day", "", "HOLIDAY", start.AddDate(0, 0, 5), start.AddDate(0, 0, 6), nil, nil, "admin-1", from, from))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_events WHERE end_at >= $1 AND start_at < $2")).
		WithArgs(from, to, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	events, total, err := repo.List(context.Background(), models.EventFilter{
		From:      &from,
		To:        &to,
		CourseIDs: []string{course},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeExam, events[0].EventType)
	require.NotNil(t, events[0].CourseID)
	assert.Equal(t, course, *events[0].CourseID)
	assert.Nil(t, events[1].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListTypeFilterPaged(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_events WHERE event_type = $1 ORDER BY start_at ASC LIMIT 5 OFFSET 10")).
		WithArgs("DEADLINE").
		WillReturnRows(sqlmock.NewRows(eventRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_events WHERE event_type = $1")).
		WithArgs("DEADLINE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	events, total, err := repo.List(context.Background(), models.EventFilter{
		EventType: models.EventTypeDeadline,
		Page:      3,
		PageSize:  5,
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_events WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	event, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, event)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEventRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM academic_events WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

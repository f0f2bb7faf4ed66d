package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "student_id", "course_id", "status", "enrolled_at", "updated_at"}

func TestEnrollmentRepositoryEnrollWithFreeSeat(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE")).
		WithArgs("s1", "c1").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2")).
		WithArgs("c1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Enroll(context.Background(), enrollment))
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.NotEmpty(t, enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollWaitlistsWhenFull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "s2", CourseID: "c1"}
	require.NoError(t, repo.Enroll(context.Background(), enrollment))
	assert.Equal(t, models.EnrollmentStatusWaitlisted, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryPromoteNextWaitlisted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	queued := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 AND status = $2 ORDER BY enrolled_at ASC LIMIT 1")).
		WithArgs("c1", models.EnrollmentStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).
			AddRow("e2", "s2", "c1", "WAITLISTED", queued, queued))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2")).
		WithArgs("e2", models.EnrollmentStatusEnrolled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	promoted, err := repo.PromoteNextWaitlisted(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, "s2", promoted.StudentID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, promoted.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryPromoteSkipsWhenFull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	promoted, err := repo.PromoteNextWaitlisted(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollReactivatesDropped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	dropped := time.Now().Add(-48 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE")).
		WithArgs("s1", "c1").
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow("e1", "s1", "c1", "DROPPED", dropped, dropped))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, enrolled_at = $3, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("e1", models.EnrollmentStatusEnrolled, sqlmock.AnyArg(), models.EnrollmentStatusDropped).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Enroll(context.Background(), enrollment))
	assert.Equal(t, "e1", enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.True(t, enrollment.EnrolledAt.After(dropped))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollReportsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	since := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns).AddRow("e1", "s1", "c1", "WAITLISTED", since, since))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	err := repo.Enroll(context.Background(), enrollment)
	assert.ErrorIs(t, err, models.ErrDuplicate)
	assert.Equal(t, "e1", enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollConcurrentInsertIsDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(enrollmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	err := repo.Enroll(context.Background(), enrollment)
	assert.ErrorIs(t, err, models.ErrDuplicate)
	assert.Empty(t, enrollment.ID)
}

func TestEnrollmentRepositoryEnrollMissingCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Enroll(context.Background(), &models.Enrollment{StudentID: "s1", CourseID: "gone"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryActivateRequiresFreeSeat(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	waiting := &models.Enrollment{ID: "e2", CourseID: "c1", Status: models.EnrollmentStatusWaitlisted}
	err := repo.Activate(context.Background(), waiting)
	assert.ErrorIs(t, err, models.ErrCourseFull)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, waiting.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryActivateWithFreeSeat(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("e2", models.EnrollmentStatusEnrolled, sqlmock.AnyArg(), models.EnrollmentStatusWaitlisted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	waiting := &models.Enrollment{ID: "e2", CourseID: "c1", Status: models.EnrollmentStatusWaitlisted}
	require.NoError(t, repo.Activate(context.Background(), waiting))
	assert.Equal(t, models.EnrollmentStatusEnrolled, waiting.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusGuardsPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("e1", models.EnrollmentStatusCompleted, sqlmock.AnyArg(), models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "e1", models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted)
	assert.ErrorIs(t, err, models.ErrStaleStatus)
}

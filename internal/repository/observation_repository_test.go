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

	"github.com/noah-isme/strength-log-api/internal/models"
)

func observationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "target_id", "writer_id", "teacher_id", "writer_role", "writer_name", "target_name", "category", "strength_id", "content", "status", "created_at"})
}

func TestCreateObservation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectExec("INSERT INTO observations").WillReturnResult(sqlmock.NewResult(1, 1))

	obs := &models.Observation{
		TargetID:   "s1",
		WriterID:   "s2",
		WriterRole: models.WriterPeer,
		WriterName: "김지우",
		TargetName: "강하늘",
		Category:   models.CategoryClass,
		StrengthID: "kindness",
		Content:    "모둠 활동에서 친구를 도와줌",
		Status:     models.StatusPending,
	}
	err := repo.Create(context.Background(), obs)
	require.NoError(t, err)
	assert.NotEmpty(t, obs.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndRecount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO observations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM observations WHERE target_id = $1 AND status = $2")).
		WithArgs("s1", string(models.StatusApproved)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET garden_level = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	teacherID := "t1"
	obs := &models.Observation{
		TargetID:   "s1",
		WriterID:   teacherID,
		TeacherID:  &teacherID,
		WriterRole: models.WriterTeacher,
		WriterName: "김선생",
		TargetName: "강하늘",
		Category:   models.CategoryDailyLife,
		StrengthID: "perseverance",
		Content:    "급식 당번을 끝까지 책임짐",
		Status:     models.StatusApproved,
	}
	level, err := repo.CreateAndRecount(context.Background(), obs)
	require.NoError(t, err)
	assert.Equal(t, 3, level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideAndRecountApproval(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	now := time.Now()
	rows := observationRows().
		AddRow("o1", "s1", "s2", nil, string(models.WriterPeer), "김지우", "강하늘", string(models.CategoryClass), "teamwork", "모둠을 잘 이끌어줌", string(models.StatusPending), now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_id, writer_id, teacher_id, writer_role, writer_name, target_name, category, strength_id, content, status, created_at FROM observations WHERE id = $1 FOR UPDATE")).
		WithArgs("o1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE observations SET status = $2 WHERE id = $1")).
		WithArgs("o1", string(models.StatusApproved)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM observations WHERE target_id = $1 AND status = $2")).
		WithArgs("s1", string(models.StatusApproved)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET garden_level = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("s1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	obs, level, err := repo.DecideAndRecount(context.Background(), "o1", models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, obs.Status)
	assert.Equal(t, 1, level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideAndRecountRejectionSkipsRecount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	now := time.Now()
	rows := observationRows().
		AddRow("o1", "s1", "s1", nil, string(models.WriterSelf), "강하늘", "강하늘", string(models.CategoryDailyLife), "zest", "아침 달리기를 빠지지 않음", string(models.StatusPending), now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM observations WHERE id = (.+) FOR UPDATE").
		WithArgs("o1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE observations SET status = $2 WHERE id = $1")).
		WithArgs("o1", string(models.StatusRejected)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT garden_level FROM users WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"garden_level"}).AddRow(2))
	mock.ExpectCommit()

	obs, level, err := repo.DecideAndRecount(context.Background(), "o1", models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, obs.Status)
	assert.Equal(t, 2, level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideAndRecountAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	now := time.Now()
	rows := observationRows().
		AddRow("o1", "s1", "s2", nil, string(models.WriterPeer), "김지우", "강하늘", string(models.CategoryClass), "honesty", "사실대로 말함", string(models.StatusApproved), now)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM observations WHERE id = (.+) FOR UPDATE").
		WithArgs("o1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	_, _, err := repo.DecideAndRecount(context.Background(), "o1", models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideAndRecountMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM observations WHERE id = (.+) FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.DecideAndRecount(context.Background(), "missing", models.StatusApproved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListObservationsCombinesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	now := time.Now()
	rows := observationRows().
		AddRow("o2", "s1", "s2", nil, string(models.WriterPeer), "김지우", "강하늘", string(models.CategoryClass), "teamwork", "함께 과제를 끝냄", string(models.StatusPending), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_id, writer_id, teacher_id, writer_role, writer_name, target_name, category, strength_id, content, status, created_at FROM observations WHERE target_id = $1 AND status = $2 ORDER BY created_at DESC")).
		WithArgs("s1", string(models.StatusPending)).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ObservationFilter{TargetID: "s1", Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "o2", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStrengthSummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewObservationRepository(db)

	rows := sqlmock.NewRows([]string{"strength_id", "count"}).
		AddRow("kindness", 4).
		AddRow("bravery", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT strength_id, COUNT(*) AS count FROM observations WHERE target_id = $1 AND status = $2 GROUP BY strength_id ORDER BY count DESC, strength_id ASC")).
		WithArgs("s1", string(models.StatusApproved)).
		WillReturnRows(rows)

	summary, err := repo.StrengthSummary(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "kindness", summary[0].StrengthID)
	assert.Equal(t, 4, summary[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

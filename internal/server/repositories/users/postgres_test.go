package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	qInsert   = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at\s*$`
	qByEmail  = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*hashed_rt,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	qByID     = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*hashed_rt,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	qSetRt    = `(?s)^UPDATE\s+users\s+SET\s+hashed_rt\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`
	qLockRt   = `(?s)^SELECT\s+hashed_rt\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	qClearRt  = `(?s)^UPDATE\s+users\s+SET\s+hashed_rt\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s+AND\s+hashed_rt\s+IS\s+NOT\s+NULL\s*$`
	userEmail = "a@x.com"
)

var userCols = []string{"id", "email", "password_hash", "hashed_rt", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(qInsert).
		WithArgs(userEmail, "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), now))

	got, err := repo.Create(context.Background(), userEmail, "hash")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.Email != userEmail || got.PasswordHash != "hash" || got.RefreshTokenHash != nil {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).
		WithArgs(userEmail, "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), userEmail, "hash")
	if !errors.Is(err, common.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsert).
		WithArgs(userEmail, "hash").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), userEmail, "hash")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByEmail).
		WithArgs(userEmail).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), userEmail, "pw-hash", "rt-hash", time.Now()))

	got, err := repo.FindByEmail(context.Background(), userEmail)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != 1 || got.PasswordHash != "pw-hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.RefreshTokenHash == nil || *got.RefreshTokenHash != "rt-hash" {
		t.Fatalf("expected refresh hash, got %v", got.RefreshTokenHash)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByEmail).WithArgs("ghost@x.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@x.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByID_NullRefreshHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByID).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(5), userEmail, "pw-hash", nil, time.Now()))

	got, err := repo.FindByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.RefreshTokenHash != nil || got.HasRefreshHash() {
		t.Fatalf("expected no refresh hash, got %v", *got.RefreshTokenHash)
	}
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByID).WithArgs(int64(5)).WillReturnError(errors.New("db err"))

	_, err := repo.FindByID(context.Background(), 5)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSetRefreshHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qSetRt).WithArgs(int64(1), "h1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SetRefreshHash(context.Background(), 1, "h1"); err != nil {
		t.Fatalf("SetRefreshHash error: %v", err)
	}

	mock.ExpectExec(qSetRt).WithArgs(int64(2), "h1").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SetRefreshHash(context.Background(), 2, "h1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound for missing user, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRotateRefreshHash_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qLockRt).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"hashed_rt"}).AddRow("old"))
	mock.ExpectExec(qSetRt).WithArgs(int64(1), "new").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.RotateRefreshHash(context.Background(), 1, "old", "new"); err != nil {
		t.Fatalf("RotateRefreshHash error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRotateRefreshHash_Stale(t *testing.T) {
	tests := []struct {
		name   string
		stored any
	}{
		{name: "rotated by someone else", stored: "other"},
		{name: "logged out", stored: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectQuery(qLockRt).WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"hashed_rt"}).AddRow(tt.stored))
			mock.ExpectRollback()

			err := repo.RotateRefreshHash(context.Background(), 1, "old", "new")
			if !errors.Is(err, common.ErrStaleRefreshHash) {
				t.Fatalf("want ErrStaleRefreshHash, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("sql expectations: %v", err)
			}
		})
	}
}

func TestRotateRefreshHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qLockRt).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.RotateRefreshHash(context.Background(), 9, "old", "new")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestClearRefreshHash_IdempotentWhenAbsent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qClearRt).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qClearRt).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ClearRefreshHash(context.Background(), 1); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := repo.ClearRefreshHash(context.Background(), 1); err != nil {
		t.Fatalf("second clear must be a no-op, got %v", err)
	}
}

func TestClearRefreshHash_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qClearRt).WithArgs(int64(1)).WillReturnError(errors.New("db err"))

	err := repo.ClearRefreshHash(context.Background(), 1)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

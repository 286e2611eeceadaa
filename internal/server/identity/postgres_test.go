package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/573dev/gfdm-server/internal/common"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgres_UserByCardID_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT u\.userid, u\.pin FROM users u`).
		WithArgs("E0040100DE52896C").
		WillReturnRows(sqlmock.NewRows([]string{"userid", "pin"}).AddRow(int64(7), "1234"))

	user, err := s.UserByCardID(context.Background(), "E0040100DE52896C")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UserID)
	assert.Equal(t, "1234", user.PIN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UserByCardID_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT u\.userid, u\.pin FROM users u`).
		WithArgs("AA00").
		WillReturnError(sql.ErrNoRows)

	_, err := s.UserByCardID(context.Background(), "AA00")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RefIDForUser_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WithArgs(int64(7), Game, Version).
		WillReturnError(sql.ErrNoRows)

	_, err := s.RefIDForUser(context.Background(), 7)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RegisterCard_OneTransaction(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users \(pin\)`).
		WillReturnRows(sqlmock.NewRows([]string{"userid"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO cards`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT extid, game, userid FROM extids`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM extids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT ensure_extid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO extids`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO refids`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	refid, err := s.RegisterCard(context.Background(), "E0040100DE52896C", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(42), refid.UserID)
	assert.Regexp(t, refidPattern, refid.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RegisterCard_RollsBackOnCardConflict(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users \(pin\)`).
		WillReturnRows(sqlmock.NewRows([]string{"userid"}).AddRow(int64(43)))
	mock.ExpectExec(`INSERT INTO cards`).
		WillReturnError(errors.New("duplicate key value violates unique constraint \"cards_pkey\""))
	mock.ExpectRollback()

	_, err := s.RegisterCard(context.Background(), "E0040100DE52896C", "1234")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MintRefID_RetriesOnCollision(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT extid, game, userid FROM extids`).
		WillReturnRows(sqlmock.NewRows([]string{"extid", "game", "userid"}).
			AddRow(int64(12345678), Game, int64(7)))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WillReturnError(sql.ErrNoRows)
	// First candidate already taken, second one wins.
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO refids`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	refid, err := s.MintRefID(context.Background(), 7)
	require.NoError(t, err)
	assert.Regexp(t, refidPattern, refid.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MintRefID_ReturnsExistingRow(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT extid, game, userid FROM extids`).
		WillReturnRows(sqlmock.NewRows([]string{"extid", "game", "userid"}).
			AddRow(int64(12345678), Game, int64(7)))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WithArgs(int64(7), Game, Version).
		WillReturnRows(sqlmock.NewRows([]string{"refid", "game", "version", "userid"}).
			AddRow("ADE0FE0B14AEAEFC", Game, Version, int64(7)))
	mock.ExpectCommit()

	refid, err := s.MintRefID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ADE0FE0B14AEAEFC", refid.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MintRefID_ResamplesAfterInsertRace(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT extid, game, userid FROM extids`).
		WillReturnRows(sqlmock.NewRows([]string{"extid", "game", "userid"}).
			AddRow(int64(12345678), Game, int64(7)))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WillReturnError(sql.ErrNoRows)
	// The precheck misses a value inserted between it and our insert; the
	// savepoint rollback keeps the transaction usable for the next sample.
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO refids`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "refids_pkey"})
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO refids`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	refid, err := s.MintRefID(context.Background(), 7)
	require.NoError(t, err)
	assert.Regexp(t, refidPattern, refid.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MintRefID_ConcurrentMintWins(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT extid, game, userid FROM extids`).
		WillReturnRows(sqlmock.NewRows([]string{"extid", "game", "userid"}).
			AddRow(int64(12345678), Game, int64(7)))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM refids`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`^SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Another transaction minted for this user first; its row wins.
	mock.ExpectExec(`INSERT INTO refids`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "game_version_userid"})
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT mint_refid`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT refid, game, version, userid FROM refids`).
		WithArgs(int64(7), Game, Version).
		WillReturnRows(sqlmock.NewRows([]string{"refid", "game", "version", "userid"}).
			AddRow("00C0FFEE00C0FFEE", Game, Version, int64(7)))
	mock.ExpectCommit()

	refid, err := s.MintRefID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "00C0FFEE00C0FFEE", refid.RefID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_HasProfile(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM profiles`).
		WithArgs("ADE0FE0B14AEAEFC").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := s.HasProfile(context.Background(), "ADE0FE0B14AEAEFC")
	require.NoError(t, err)
	assert.True(t, has)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_VerifyPIN(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT u\.userid, u\.pin FROM users u`).
		WithArgs("ADE0FE0B14AEAEFC").
		WillReturnRows(sqlmock.NewRows([]string{"userid", "pin"}).AddRow(int64(7), "1234"))

	ok, err := s.VerifyPIN(context.Background(), "ADE0FE0B14AEAEFC", "1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

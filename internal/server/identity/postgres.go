package identity

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/573dev/gfdm-server/internal/common"
	"github.com/573dev/gfdm-server/internal/dbx"
	"github.com/573dev/gfdm-server/internal/server/migrations"
	"github.com/573dev/gfdm-server/internal/server/models"
)

// pgUniqueViolation is the SQLSTATE for a unique-constraint failure.
const pgUniqueViolation = "23505"

// PostgresStore implements Store over PostgreSQL. Uniqueness is backstopped
// by the schema constraints, so concurrent registrations for one card id
// cannot both win.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// uniqueViolationConstraint names the constraint behind a unique violation,
// so allocation loops can tell a value collision (resample) from a
// lost per-user race (another transaction already allocated for this user).
func uniqueViolationConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func (s *PostgresStore) UserByCardID(ctx context.Context, cardID string) (*models.User, error) {
	query :=
		`SELECT u.userid, u.pin FROM users u
		 JOIN cards c ON c.userid = u.userid
		 WHERE c.cardid = $1
		 `

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, cardID).Scan(&user.UserID, &user.PIN)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) UserByRefID(ctx context.Context, refID string) (*models.User, error) {
	return userByRefID(ctx, s.db, refID)
}

func userByRefID(ctx context.Context, db dbx.DBTX, refID string) (*models.User, error) {
	query :=
		`SELECT u.userid, u.pin FROM users u
		 JOIN refids r ON r.userid = u.userid
		 WHERE r.refid = $1
		 `

	user := &models.User{}
	err := db.QueryRowContext(ctx, query, refID).Scan(&user.UserID, &user.PIN)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) RegisterCard(ctx context.Context, cardID, pin string) (*models.RefID, error) {
	var refid *models.RefID

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var userID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (pin) VALUES ($1) RETURNING userid`, pin).Scan(&userID)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO cards (cardid, userid) VALUES ($1, $2)`, cardID, userID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("attach card %s: %w", cardID, common.ErrDuplicateCard)
			}
			return fmt.Errorf("attach card: %w", err)
		}

		if _, err := ensureExtID(ctx, tx, userID); err != nil {
			return err
		}

		refid, err = mintRefID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return refid, nil
}

func (s *PostgresStore) RefIDForUser(ctx context.Context, userID int64) (*models.RefID, error) {
	return refIDForUser(ctx, s.db, userID)
}

func refIDForUser(ctx context.Context, db dbx.DBTX, userID int64) (*models.RefID, error) {
	query :=
		`SELECT refid, game, version, userid FROM refids
		 WHERE userid = $1 AND game = $2 AND version = $3
		 `

	refid := &models.RefID{}
	err := db.QueryRowContext(ctx, query, userID, Game, Version).
		Scan(&refid.RefID, &refid.Game, &refid.Version, &refid.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return refid, nil
}

func (s *PostgresStore) EnsureExtID(ctx context.Context, userID int64) (*models.ExtID, error) {
	var extid *models.ExtID
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		extid, err = ensureExtID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return extid, nil
}

// ensureExtID is idempotent: it returns the existing row when present and
// otherwise rejection-samples a fresh globally unique 8-digit value. The
// retry loop is bounded only by collision probability; with 9e7 candidates
// the expected iteration count stays near 1 for any realistic player base.
// Each insert attempt runs under a savepoint: a failed statement aborts the
// surrounding transaction otherwise, which would turn the resample into a
// "current transaction is aborted" error.
func ensureExtID(ctx context.Context, tx dbx.DBTX, userID int64) (*models.ExtID, error) {
	extid, err := extIDForUser(ctx, tx, userID)
	if err == nil {
		return extid, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	for {
		candidate, err := common.MakeRandIntInRange(10000000, 99999999)
		if err != nil {
			return nil, err
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM extids WHERE extid = $1)`, candidate).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.ExecContext(ctx, `SAVEPOINT ensure_extid`); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO extids (extid, game, userid) VALUES ($1, $2, $3)`,
			candidate, Game, userID)
		if err != nil {
			constraint, ok := uniqueViolationConstraint(err)
			if !ok {
				return nil, fmt.Errorf("insert extid: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT ensure_extid`); err != nil {
				return nil, fmt.Errorf("db error: %w", err)
			}
			if constraint == "game_userid" {
				// A concurrent transaction allocated this user's extid;
				// it is the extid now.
				return extIDForUser(ctx, tx, userID)
			}
			// Lost a race on the extid value; sample again.
			continue
		}

		return &models.ExtID{ExtID: candidate, Game: Game, UserID: userID}, nil
	}
}

func extIDForUser(ctx context.Context, tx dbx.DBTX, userID int64) (*models.ExtID, error) {
	extid := &models.ExtID{}
	err := tx.QueryRowContext(ctx,
		`SELECT extid, game, userid FROM extids WHERE game = $1 AND userid = $2`,
		Game, userID).Scan(&extid.ExtID, &extid.Game, &extid.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return extid, nil
}

func (s *PostgresStore) MintRefID(ctx context.Context, userID int64) (*models.RefID, error) {
	var refid *models.RefID
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := ensureExtID(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		refid, err = mintRefID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return refid, nil
}

// mintRefID holds the (game, version, user) invariant: a user has at most
// one refid per game and version, so an existing row is returned as-is and
// only a first-time mint samples a fresh value. Insert attempts run under a
// savepoint for the same reason as ensureExtID.
func mintRefID(ctx context.Context, tx dbx.DBTX, userID int64) (*models.RefID, error) {
	refid, err := refIDForUser(ctx, tx, userID)
	if err == nil {
		return refid, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	for {
		candidate, err := common.MakeRandHexString(16)
		if err != nil {
			return nil, err
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM refids WHERE refid = $1)`, candidate).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.ExecContext(ctx, `SAVEPOINT mint_refid`); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO refids (refid, game, version, userid) VALUES ($1, $2, $3, $4)`,
			candidate, Game, Version, userID)
		if err != nil {
			constraint, ok := uniqueViolationConstraint(err)
			if !ok {
				return nil, fmt.Errorf("insert refid: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT mint_refid`); err != nil {
				return nil, fmt.Errorf("db error: %w", err)
			}
			if constraint == "game_version_userid" {
				// A concurrent mint for this user won; its row is the refid.
				return refIDForUser(ctx, tx, userID)
			}
			// Refid value collision; sample again.
			continue
		}

		return &models.RefID{RefID: candidate, Game: Game, Version: Version, UserID: userID}, nil
	}
}

func (s *PostgresStore) HasProfile(ctx context.Context, refID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE refid = $1)`, refID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, refID string, data []byte) error {
	query :=
		`INSERT INTO profiles (refid, data) VALUES ($1, $2)
		 ON CONFLICT (refid) DO UPDATE SET data = EXCLUDED.data
		 `

	if _, err := s.db.ExecContext(ctx, query, refID, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ProfileByRefID(ctx context.Context, refID string) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT refid, data FROM profiles WHERE refid = $1`, refID).
		Scan(&profile.RefID, &profile.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) VerifyPIN(ctx context.Context, refID, pin string) (bool, error) {
	user, err := userByRefID(ctx, s.db, refID)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(user.PIN), []byte(pin)) == 1, nil
}

package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// RevocationRepo is read on every authenticated request, so it talks SQL
// directly over the ORM's connection pool.
type RevocationRepo struct{ DB *sqlx.DB }

func NewRevocationRepo(db *gorm.DB) (*RevocationRepo, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// "postgres" rebinds to $n; "sqlite" keeps '?'
	return &RevocationRepo{DB: sqlx.NewDb(sqlDB, db.Dialector.Name())}, nil
}

// Revoke moves the user's cutoff to at. Sessions issued at or before that
// second stop validating.
func (r *RevocationRepo) Revoke(ctx context.Context, userID uint, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO session_revocations(user_id, revoked_at)
		VALUES(?, ?)
		ON CONFLICT(user_id) DO UPDATE SET revoked_at = excluded.revoked_at`), userID, at.Unix())
	return err
}

// Cutoff returns the revocation second for userID, ok=false when none exists.
func (r *RevocationRepo) Cutoff(ctx context.Context, userID uint) (int64, bool, error) {
	var ts int64
	err := r.DB.GetContext(ctx, &ts, r.DB.Rebind(`SELECT revoked_at FROM session_revocations WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ts, true, nil
}

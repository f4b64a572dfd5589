package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AccountRow mirrors spec.md §6's account table: a stable numeric id,
// the login identity (username/email/password hash), and an optional
// password-reset code (data model §3 "optional password-reset code").
type AccountRow struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	ResetCode    *string
	CreatedAt    time.Time
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, username string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, reset_code, created_at
		 FROM account WHERE username = $1`, username,
	).Scan(&row.ID, &row.Username, &row.Email, &row.PasswordHash, &row.ResetCode, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Create registers a brand-new account (spec.md §8 scenario 1
// "Registration + login"), hashing the password with the teacher's
// chosen bcrypt cost.
func (r *AccountRepo) Create(ctx context.Context, username, rawPassword, email string) (*AccountRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	row := &AccountRow{Username: username, Email: email, PasswordHash: string(hash), CreatedAt: time.Now()}
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO account (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		username, email, row.PasswordHash,
	).Scan(&row.ID)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) ValidatePassword(hash, rawPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}

// SetResetCode stores (or clears, passing nil) a password-reset code.
func (r *AccountRepo) SetResetCode(ctx context.Context, accountID uint64, code *string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE account SET reset_code = $2 WHERE id = $1`, accountID, code)
	return err
}

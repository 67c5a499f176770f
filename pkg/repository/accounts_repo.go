package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/simple-accounts/pkg/domain"
)

const accountColumns = `id, user_name, family_name, first_name, email, password_hash,
		       is_admin, is_deleted, locked_flg, error_count`

// AccountsRepository handles account persistence.
// Reads go straight to the pool; every write runs in its own transaction.
type AccountsRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB, dialect Dialect) *AccountsRepository {
	return &AccountsRepository{db: db, dialect: dialect}
}

func (r *AccountsRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.UserName, &a.FamilyName, &a.FirstName, &a.Email, &a.PasswordHash,
		&a.IsAdmin, &a.IsDeleted, &a.LockedFlg, &a.ErrorCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new account and sets its ID. The email check and the insert
// share one transaction; an existing row with the same email, deleted or not,
// yields domain.ErrAccountAlreadyExists.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		exists, err := r.existsByEmailTx(ctx, tx, account.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAccountAlreadyExists
		}

		query := r.q(`
			INSERT INTO accounts (user_name, family_name, first_name, email, password_hash,
			                      is_deleted, locked_flg, error_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, is_admin
		`)
		return tx.QueryRowContext(ctx, query,
			account.UserName, account.FamilyName, account.FirstName, account.Email, account.PasswordHash,
			false, false, 0,
		).Scan(&account.ID, &account.IsAdmin)
	})
}

func (r *AccountsRepository) existsByEmailTx(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	query := r.q(`SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)`)
	var exists bool
	err := tx.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// GetByEmail retrieves the first account with the given email.
// Soft-deleted accounts are included.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := r.q(`
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = ?
		ORDER BY id
		LIMIT 1
	`)
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves an account by ID, including soft-deleted accounts.
func (r *AccountsRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := r.q(`
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ?
	`)
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// List returns every account ordered by ID.
func (r *AccountsRepository) List(ctx context.Context) ([]domain.AccountSummary, error) {
	query := `
		SELECT id, user_name, password_hash, family_name, first_name, is_admin, is_deleted
		FROM accounts
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.AccountSummary{}
	for rows.Next() {
		var s domain.AccountSummary
		if err := rows.Scan(&s.ID, &s.UserName, &s.PasswordHash, &s.FamilyName, &s.FirstName, &s.IsAdmin, &s.IsDeleted); err != nil {
			return nil, err
		}
		accounts = append(accounts, s)
	}
	return accounts, rows.Err()
}

// Count returns the number of rows in the accounts table.
func (r *AccountsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

// ExistsByID checks if an account with the given ID exists.
func (r *AccountsRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	query := r.q(`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`)
	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

// ResetErrorCount sets the failed login counter back to zero.
func (r *AccountsRepository) ResetErrorCount(ctx context.Context, id int64) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.q(`UPDATE accounts SET error_count = 0 WHERE id = ?`)
		return execOne(ctx, tx, query, id)
	})
}

// IncrementErrorCount adds one to the failed login counter and returns the new value.
func (r *AccountsRepository) IncrementErrorCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.q(`UPDATE accounts SET error_count = error_count + 1 WHERE id = ?`)
		if err := execOne(ctx, tx, query, id); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, r.q(`SELECT error_count FROM accounts WHERE id = ?`), id).Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Lock sets locked_flg. There is no inverse operation.
func (r *AccountsRepository) Lock(ctx context.Context, id int64) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.q(`UPDATE accounts SET locked_flg = ? WHERE id = ?`)
		return execOne(ctx, tx, query, true, id)
	})
}

// SoftDelete marks an account as deleted without removing the row.
func (r *AccountsRepository) SoftDelete(ctx context.Context, id int64) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.q(`UPDATE accounts SET is_deleted = ? WHERE id = ?`)
		return execOne(ctx, tx, query, true, id)
	})
}

// SetAdmin grants or revokes the admin flag for the account with email.
// Accounts are only promoted out of band, never through the store.
func (r *AccountsRepository) SetAdmin(ctx context.Context, email string, admin bool) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := r.q(`UPDATE accounts SET is_admin = ? WHERE email = ?`)
		return execOne(ctx, tx, query, admin, email)
	})
}

// execOne runs an UPDATE that must touch a row.
func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError names the entity kind and id that could not be found.
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrAccessDenied Error = "access denied"
	ErrConflict     Error = "version conflict"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UserIDByUsername resolves the opaque identity the auth layer hands over.
func (s *Store) UserIDByUsername(ctx context.Context, username string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM user WHERE username = ?`,
		username,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Kind: "user", ID: 0}
	}
	if err != nil {
		return 0, errors.Wrap(err, "db.get_user")
	}
	return id, nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "db.commit")
}

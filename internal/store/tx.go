package store

import (
	"context"
	"fmt"
)

// WithTx runs fn inside one unit of work, committing on success and rolling back otherwise.
func WithTx(ctx context.Context, s Store, fn func(UnitOfWork) error) (err error) {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	uow, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback()
			panic(r)
		}
	}()
	if err = fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err = uow.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadOnly runs fn in a unit of work that is always rolled back.
func ReadOnly(ctx context.Context, s Store, fn func(UnitOfWork) error) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	uow, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = uow.Rollback() }()
	return fn(uow)
}

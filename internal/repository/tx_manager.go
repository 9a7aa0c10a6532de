package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

type txCtxKey struct{}

// TransactionManager manages database transactions via context injection.
// Repositories called with the txCtx passed to fn join the transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db   *gorm.DB
	opts *sql.TxOptions
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// NewSerializableTransactionManager runs every transaction at SERIALIZABLE isolation
func NewSerializableTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db, opts: &sql.TxOptions{Isolation: sql.LevelSerializable}}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	// Nested calls reuse the outer transaction
	if _, ok := ctx.Value(txCtxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	var opts []*sql.TxOptions
	if t.opts != nil {
		opts = append(opts, t.opts)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txCtxKey{}, tx))
	}, opts...)
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txCtxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

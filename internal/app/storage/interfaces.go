package storage

import (
	"context"

	"github.com/R3E-Network/calcstore/internal/app/domain/item"
	"github.com/R3E-Network/calcstore/internal/app/domain/operation"
)

// ItemStore persists catalogue items.
type ItemStore interface {
	CreateItem(ctx context.Context, it item.Item) (item.Item, error)
	ListItems(ctx context.Context) ([]item.Item, error)
}

// OperationStore persists the append-only addition history.
type OperationStore interface {
	CreateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error)
	ListOperations(ctx context.Context) ([]operation.Operation, error)
}

// Session is one unit of work. Writes made through a session become visible
// only when the owning Gateway commits it.
type Session interface {
	ItemStore
	OperationStore
}

// Gateway hands out sessions. WithSession commits when fn returns nil and
// rolls back when fn returns an error or panics; the session is released on
// every path and must not be retained after fn returns.
type Gateway interface {
	WithSession(ctx context.Context, fn func(Session) error) error
}

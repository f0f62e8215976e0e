package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/R3E-Network/calcstore/internal/app/domain/item"
	"github.com/R3E-Network/calcstore/internal/app/domain/operation"
	"github.com/R3E-Network/calcstore/internal/app/storage"
	"github.com/R3E-Network/calcstore/internal/apperrors"
)

var errSessionClosed = errors.New("session already released")

// Store is an in-memory implementation of storage.Gateway. It is safe for
// concurrent use and is primarily intended for tests and local development.
//
// Like a database sequence, ids are reserved when a row is staged and are not
// reused if the session rolls back.
type Store struct {
	mu         sync.Mutex
	nextItemID int64
	nextOpID   int64
	items      []item.Item
	operations []operation.Operation
	commitErr  error
}

var _ storage.Gateway = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{nextItemID: 1, nextOpID: 1}
}

// FailNextCommit makes the next commit fail with err and discard its writes.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// WithSession runs fn in a staged unit of work. Rows staged by fn are
// published atomically when fn returns nil.
func (s *Store) WithSession(ctx context.Context, fn func(storage.Session) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "begin session", err)
	}

	sess := &session{store: s}
	defer sess.release()

	if err := fn(sess); err != nil {
		return err
	}
	return s.commit(sess)
}

func (s *Store) commit(sess *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commitErr; err != nil {
		s.commitErr = nil
		return apperrors.Wrap(apperrors.KindPersistence, "commit session", err)
	}
	s.items = append(s.items, sess.items...)
	s.operations = append(s.operations, sess.operations...)
	return nil
}

type session struct {
	store      *Store
	mu         sync.Mutex
	released   bool
	items      []item.Item
	operations []operation.Operation
}

func (t *session) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released = true
	t.items = nil
	t.operations = nil
}

func (t *session) CreateItem(_ context.Context, it item.Item) (item.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return item.Item{}, apperrors.Wrap(apperrors.KindPersistence, "insert item", errSessionClosed)
	}

	t.store.mu.Lock()
	it.ID = t.store.nextItemID
	t.store.nextItemID++
	t.store.mu.Unlock()

	t.items = append(t.items, it)
	return it, nil
}

func (t *session) ListItems(_ context.Context) ([]item.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "select items", errSessionClosed)
	}

	t.store.mu.Lock()
	out := make([]item.Item, 0, len(t.store.items)+len(t.items))
	out = append(out, t.store.items...)
	t.store.mu.Unlock()

	out = append(out, t.items...)
	slices.SortFunc(out, func(a, b item.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *session) CreateOperation(_ context.Context, op operation.Operation) (operation.Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return operation.Operation{}, apperrors.Wrap(apperrors.KindPersistence, "insert operation", errSessionClosed)
	}

	t.store.mu.Lock()
	op.ID = t.store.nextOpID
	t.store.nextOpID++
	t.store.mu.Unlock()

	t.operations = append(t.operations, op)
	return op, nil
}

func (t *session) ListOperations(_ context.Context) ([]operation.Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "select operations", errSessionClosed)
	}

	t.store.mu.Lock()
	out := make([]operation.Operation, 0, len(t.store.operations)+len(t.operations))
	out = append(out, t.store.operations...)
	t.store.mu.Unlock()

	out = append(out, t.operations...)
	slices.SortFunc(out, func(a, b operation.Operation) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

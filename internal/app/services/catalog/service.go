package catalog

import (
	"context"

	"github.com/R3E-Network/calcstore/internal/app/domain/item"
	"github.com/R3E-Network/calcstore/internal/app/metrics"
	"github.com/R3E-Network/calcstore/internal/app/storage"
	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

// Service creates and lists catalogue items.
type Service struct {
	gateway storage.Gateway
	log     *logger.Logger
}

// New constructs a catalog service.
func New(gateway storage.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{gateway: gateway, log: log}
}

// Create persists a new item and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, name string, price int64) (item.Item, error) {
	it := item.Item{Name: name, Price: price}
	if err := it.Validate(); err != nil {
		return item.Item{}, apperrors.Wrap(apperrors.KindValidation, "invalid item", err)
	}

	err := s.gateway.WithSession(ctx, func(sess storage.Session) error {
		var err error
		it, err = sess.CreateItem(ctx, it)
		return err
	})
	if err != nil {
		return item.Item{}, err
	}

	metrics.RecordItemCreated()
	s.log.WithField("item_id", it.ID).Debug("item created")
	return it, nil
}

// List returns every item in id order.
func (s *Service) List(ctx context.Context) ([]item.Item, error) {
	var items []item.Item
	err := s.gateway.WithSession(ctx, func(sess storage.Session) error {
		var err error
		items, err = sess.ListItems(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

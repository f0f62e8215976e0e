package arithmetic

import (
	"context"
	"fmt"

	"github.com/R3E-Network/calcstore/internal/app/domain/operation"
	"github.com/R3E-Network/calcstore/internal/app/metrics"
	"github.com/R3E-Network/calcstore/internal/app/storage"
	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

// Service serves additions and, in history mode, records each one.
type Service struct {
	gateway storage.Gateway
	mode    config.AddMode
	log     *logger.Logger
}

// New constructs an arithmetic service for the given add mode.
func New(gateway storage.Gateway, mode config.AddMode, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("arithmetic")
	}
	return &Service{gateway: gateway, mode: mode, log: log}
}

// Mode reports which add variant this deployment serves.
func (s *Service) Mode() config.AddMode {
	return s.mode
}

// Add returns a + b. It has no side effects.
func (s *Service) Add(a, b float64) float64 {
	metrics.RecordAddition(string(config.AddModeStateless))
	return a + b
}

// AddAndRecord sums a and b and appends the operation to the history in one
// unit of work. Nothing is recorded when the operands are out of range or the
// commit fails.
func (s *Service) AddAndRecord(ctx context.Context, a, b int64) (operation.Operation, error) {
	if s.mode != config.AddModeHistory {
		return operation.Operation{}, fmt.Errorf("add history disabled in %s mode", s.mode)
	}

	op := operation.New(a, b)
	if err := op.Validate(); err != nil {
		return operation.Operation{}, apperrors.Wrap(apperrors.KindValidation, "invalid operands", err)
	}

	err := s.gateway.WithSession(ctx, func(sess storage.Session) error {
		var err error
		op, err = record(ctx, sess, op)
		return err
	})
	if err != nil {
		return operation.Operation{}, err
	}

	metrics.RecordAddition(string(config.AddModeHistory))
	s.log.WithField("operation_id", op.ID).Debugf("recorded %d + %d = %d", op.A, op.B, op.Result)
	return op, nil
}

// History lists every recorded operation.
func (s *Service) History(ctx context.Context) ([]operation.Operation, error) {
	var ops []operation.Operation
	err := s.gateway.WithSession(ctx, func(sess storage.Session) error {
		var err error
		ops, err = sess.ListOperations(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func record(ctx context.Context, sess storage.Session, op operation.Operation) (operation.Operation, error) {
	created, err := sess.CreateOperation(ctx, op)
	if err != nil {
		return operation.Operation{}, err
	}
	if created.Result != created.A+created.B {
		return operation.Operation{}, apperrors.E(apperrors.KindPersistence,
			fmt.Sprintf("stored operation %d violates result = a + b", created.ID))
	}
	return created, nil
}

package app

import (
	"fmt"

	"github.com/R3E-Network/calcstore/internal/app/metrics"
	"github.com/R3E-Network/calcstore/internal/app/services/arithmetic"
	"github.com/R3E-Network/calcstore/internal/app/services/catalog"
	"github.com/R3E-Network/calcstore/internal/app/storage"
	"github.com/R3E-Network/calcstore/internal/app/storage/memory"
	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

// Application ties domain services to a storage gateway.
type Application struct {
	log *logger.Logger

	Catalog    *catalog.Service
	Arithmetic *arithmetic.Service
}

// New builds an application over the provided gateway. A nil gateway defaults
// to the in-memory implementation.
func New(gateway storage.Gateway, mode config.AddMode, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	switch mode {
	case config.AddModeStateless, config.AddModeHistory:
	case "":
		mode = config.AddModeStateless
	default:
		return nil, fmt.Errorf("unsupported add mode %q", mode)
	}

	if gateway == nil {
		log.Warn("no storage gateway configured; using in-memory store")
		gateway = memory.New()
	}
	gateway = metrics.InstrumentGateway(gateway)

	return &Application{
		log:        log,
		Catalog:    catalog.New(gateway, log.Named("catalog")),
		Arithmetic: arithmetic.New(gateway, mode, log.Named("arithmetic")),
	}, nil
}

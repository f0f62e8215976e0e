// Package app composes the domain services into a running application.
//
// Layout:
//
//	internal/app/
//	├── application.go   # service wiring
//	├── domain/          # item and operation models with their range checks
//	├── services/        # catalog and arithmetic use cases
//	├── storage/         # Gateway/Session contracts
//	│   ├── memory/      # in-process store for tests and local runs
//	│   └── sqlstore/    # sqlx store for PostgreSQL and SQLite
//	├── httpapi/         # routes, payload decoding, error mapping
//	├── metrics/         # Prometheus collectors
//	└── runtime/         # process lifecycle: config, database, HTTP server
//
// Every request that touches the database runs inside exactly one session
// obtained from storage.Gateway.WithSession. The session commits when the
// callback returns nil and rolls back otherwise, including on panic.
package app

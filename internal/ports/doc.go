// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [RecordStore]: persists, lists and deletes transfer records
//   - [Clock]: source of the current time, used for ids and timestamps
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters under internal/adapters implement them against the file system
// and the system clock; tests use the generated mocks in ports/mocks.
package ports

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks github.com/Weatherlly/sr-transferencias/internal/ports RecordStore,Clock

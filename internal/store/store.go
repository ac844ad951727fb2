// Package store defines the shared persistence contract the sync engine
// replicates from. Four key-addressed collections, no cross-collection
// transactions: each fetch and each write stands alone.
package store

import (
	"context"
	"fmt"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// Store is the persistence contract. Upserts are keyed by primary id.
// Users and industries overwrite all fields on an id conflict; readings are
// client-generated and unique per submission, so a conflicting reading id is
// a silent no-op and the original survives.
type Store interface {
	FetchAll(ctx context.Context) (*domain.Snapshot, error)

	PutUser(ctx context.Context, u domain.User) error
	PutIndustry(ctx context.Context, ind domain.Industry) error
	PutReading(ctx context.Context, r domain.Reading) error

	DeleteUser(ctx context.Context, id string) error
	DeleteIndustry(ctx context.Context, id string) error
	DeleteReading(ctx context.Context, id string) error

	// BulkPutIndustries applies puts sequentially and is not atomic; a
	// failure partway leaves the earlier industries applied.
	BulkPutIndustries(ctx context.Context, industries []domain.Industry) error

	// SaveAssignment replaces the user's industry set entirely.
	SaveAssignment(ctx context.Context, username string, industries []domain.Industry) error

	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend      string // postgres | dynamo | memory
	DSN          string
	AWSRegion    string
	DynamoPrefix string
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "postgres":
		return NewPostgres(cfg.DSN)
	case "dynamo":
		return NewDynamo(ctx, cfg.AWSRegion, cfg.DynamoPrefix)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

package sheets

import (
	"context"

	"zakatledger/internal/commission"
)

// Ports for outbound adapters.
type (
	// ConfigSource yields per-fiscal-year commission configurations kept
	// outside the database, such as a shared spreadsheet tab or a seed file.
	ConfigSource interface {
		FetchConfigs(ctx context.Context) ([]commission.Config, error)
		Name() string
	}
)

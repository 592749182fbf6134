package ledger

import (
	"context"
	"fmt"

	"github.com/jonathan/scholarship-agent/internal/config"
)

// OpenStore opens the backend selected by cfg.LedgerBackend.
func OpenStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.LedgerBackend {
	case config.LedgerFile, "":
		return NewFileStore(cfg.LedgerPath), nil
	case config.LedgerSQLite:
		return OpenSQLite(ctx, cfg.LedgerPath)
	case config.LedgerPostgres:
		if cfg.DatabaseURL == "" {
			return nil, &Error{Message: "postgres ledger needs a database URL (--db-url or DATABASE_URL)"}
		}
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, &Error{Message: fmt.Sprintf("unknown ledger backend %q", cfg.LedgerBackend)}
}

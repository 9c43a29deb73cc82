// Package seed loads sample invoices from a JSON file through the regular
// write path, so pending records are deduplicated exactly as API writes are.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/services/invoice"
)

type File struct {
	Invoices []invoice.Request `json:"invoices"`
}

// Load creates every invoice of the file at path. It does nothing when
// invoices already exist.
func Load(ctx context.Context, svc *invoice.Service, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	return Apply(ctx, svc, f)
}

func Apply(ctx context.Context, svc *invoice.Service, f File) (int, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info(ctx, "seed skipped, invoices already present", "count", len(existing))
		return 0, nil
	}

	created := 0
	for i := range f.Invoices {
		in, err := f.Invoices[i].Normalize(invoice.OpCreate, "")
		if err != nil {
			return created, fmt.Errorf("seed invoice %d: %w", i, err)
		}
		if _, err := svc.Create(ctx, in); err != nil {
			return created, fmt.Errorf("seed invoice %d: %w", i, err)
		}
		created++
	}
	logger.Info(ctx, "seed loaded", "created", created)
	return created, nil
}

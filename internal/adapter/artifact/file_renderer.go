// Package artifact stores rendered receipt artifacts on the local
// filesystem. The ledger core only depends on the Renderer contract; this
// implementation writes a plain-text summary per receipt.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terangapay/transfert-backend/internal/domain"
)

// FileRenderer writes one artifact file per receipt under a base directory.
type FileRenderer struct {
	dir string
}

// NewFileRenderer creates the base directory if needed and returns the
// renderer.
func NewFileRenderer(dir string) (*FileRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	return &FileRenderer{dir: dir}, nil
}

// Render writes the artifact and returns its path.
func (f *FileRenderer) Render(_ context.Context, rec *domain.Receipt, tx *domain.Transaction) (string, error) {
	path := filepath.Join(f.dir, rec.Numero+".txt")
	content := fmt.Sprintf(
		"Receipt %s\nTransaction: %d\nAmount: %s\nFee: %s\nTotal debited: %s\nStatus: %s\nDate: %s\n",
		rec.Numero,
		tx.ID,
		tx.Amount.StringFixed(2),
		tx.Fee.StringFixed(2),
		tx.TotalDebited().StringFixed(2),
		tx.Status,
		tx.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write receipt artifact: %w", err)
	}
	return path, nil
}

// Read returns the stored artifact bytes for a receipt.
func (f *FileRenderer) Read(rec *domain.Receipt) ([]byte, error) {
	return os.ReadFile(rec.FilePath)
}

// Package receipt implements the get-or-create receipt generator: one
// uniquely numbered artifact per successful transaction, created lazily the
// first time it is requested.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terangapay/transfert-backend/internal/domain"
)

const (
	numeroPrefix      = "RC"
	numeroTimeLayout  = "20060102150405"
	maxNumeroAttempts = 10
)

// Renderer produces the artifact for a receipt and returns its storage
// path. Rendering itself (PDF layout etc.) is outside the ledger core.
type Renderer interface {
	Render(ctx context.Context, rec *domain.Receipt, tx *domain.Transaction) (string, error)
}

// Service handles receipt generation and lookups.
type Service struct {
	receipts domain.ReceiptRepository
	renderer Renderer
	logger   *slog.Logger
}

// NewService creates a new receipt Service instance.
func NewService(receipts domain.ReceiptRepository, renderer Renderer, logger *slog.Logger) *Service {
	return &Service{receipts: receipts, renderer: renderer, logger: logger}
}

// GetOrCreate returns the receipt for the transaction, generating it if
// missing. Idempotent per transaction id: concurrent or repeated calls
// return the same receipt; a lost storage race re-reads the winner.
func (s *Service) GetOrCreate(ctx context.Context, tx *domain.Transaction) (*domain.Receipt, error) {
	existing, err := s.receipts.GetByTransactionID(ctx, tx.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrReceiptNotFound) {
		return nil, err
	}

	if err := validateForReceipt(tx); err != nil {
		return nil, err
	}

	numero, err := s.uniqueNumero(ctx)
	if err != nil {
		return nil, err
	}

	rec := &domain.Receipt{
		TransactionID: tx.ID,
		Numero:        numero,
		GeneratedAt:   time.Now().UTC(),
	}
	path, err := s.renderer.Render(ctx, rec, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt artifact: %w", err)
	}
	rec.FilePath = path

	created, err := s.receipts.Create(ctx, rec)
	if errors.Is(err, domain.ErrReceiptExists) {
		// a concurrent request won the race; its receipt is the receipt
		return s.receipts.GetByTransactionID(ctx, tx.ID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt generated", "transactionId", tx.ID, "numero", created.Numero)
	return created, nil
}

// GetByTransactionID returns the existing receipt for a transaction, if any.
func (s *Service) GetByTransactionID(ctx context.Context, transactionID int64) (*domain.Receipt, error) {
	return s.receipts.GetByTransactionID(ctx, transactionID)
}

// GetByNumero returns the receipt registered under a numero.
func (s *Service) GetByNumero(ctx context.Context, numero string) (*domain.Receipt, error) {
	return s.receipts.GetByNumero(ctx, numero)
}

// validateForReceipt enforces the generation preconditions: only a
// successful two-party transfer with a positive amount gets a receipt.
func validateForReceipt(tx *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction is required")
	}
	if tx.Status != domain.StatusSuccess {
		return fmt.Errorf("receipt requires a %s transaction, got %s", domain.StatusSuccess, tx.Status)
	}
	if tx.SourceAccountID == nil || tx.DestinationAccountID == nil {
		return errors.New("receipt requires both a sender and a recipient")
	}
	if tx.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("receipt requires a positive amount")
	}
	return nil
}

// uniqueNumero generates an unused receipt numero:
// RC + yyyyMMddHHmmss + 6 random uppercase alphanumerics.
// Gives up after a fixed number of collisions.
func (s *Service) uniqueNumero(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumeroAttempts; attempt++ {
		numero := numeroPrefix + time.Now().UTC().Format(numeroTimeLayout) + randomSuffix()
		taken, err := s.receipts.ExistsByNumero(ctx, numero)
		if err != nil {
			return "", err
		}
		if !taken {
			return numero, nil
		}
	}
	return "", errors.New("could not generate a unique receipt numero")
}

func randomSuffix() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}

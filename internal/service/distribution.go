package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/verifychain/verifychain/internal/domain"
)

// Transferrer is the mutating surface of the ledger gateway the distribution
// flow submits through.
type Transferrer interface {
	Transfer(ctx context.Context, recipient string, amount int64) (bool, error)
}

// TransferNotifier announces confirmed transfers to operators.
type TransferNotifier interface {
	TransferConfirmed(ctx context.Context, recipient string, amount int64) error
}

// DistributionService validates and submits token-transfer requests. Local
// validation failures never reach the ledger; a request that passes is
// submitted exactly once with no retry.
type DistributionService struct {
	ledger   Transferrer
	registry *RegistryService
	notifier TransferNotifier

	// account is the submitting account whose balance is refreshed after a
	// confirmed transfer.
	account string
	logger  *slog.Logger
}

// NewDistributionService creates a DistributionService submitting from the
// given account. The notifier may be nil.
func NewDistributionService(ledger Transferrer, registry *RegistryService, notifier TransferNotifier, account string, logger *slog.Logger) *DistributionService {
	return &DistributionService{
		ledger:   ledger,
		registry: registry,
		notifier: notifier,
		account:  account,
		logger:   logger.With(slog.String("component", "distribution")),
	}
}

// SubmitTransfer validates the request locally, submits it through the
// ledger gateway, and on confirmation refreshes the submitting account's
// cached balance. Balance sufficiency is the ledger's rule; an insufficient
// balance surfaces as domain.ErrTxReverted from the gateway.
func (s *DistributionService) SubmitTransfer(ctx context.Context, req domain.TransferRequest) error {
	if req.Recipient == "" {
		return fmt.Errorf("distribution: %w: no recipient supplied", domain.ErrInputMissing)
	}
	if !common.IsHexAddress(req.Recipient) {
		return fmt.Errorf("distribution: %w: malformed recipient address %q", domain.ErrInvalidRequest, req.Recipient)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("distribution: %w: amount must be positive, got %d", domain.ErrInvalidRequest, req.Amount)
	}

	confirmed, err := s.ledger.Transfer(ctx, req.Recipient, req.Amount)
	if err != nil {
		return fmt.Errorf("distribution: %w", err)
	}
	if !confirmed {
		return fmt.Errorf("distribution: transfer not confirmed")
	}

	s.logger.InfoContext(ctx, "transfer confirmed",
		slog.String("recipient", req.Recipient),
		slog.Int64("amount", req.Amount),
	)

	// Only the submitting account's balance changes locally; the recipient
	// may not be tracked at all.
	if s.registry != nil && s.account != "" {
		if _, refErr := s.registry.RefreshBalance(ctx, s.account); refErr != nil {
			s.logger.WarnContext(ctx, "balance refresh after transfer failed",
				slog.String("account", s.account),
				slog.String("error", refErr.Error()),
			)
		}
	}
	if s.notifier != nil {
		if notifyErr := s.notifier.TransferConfirmed(ctx, req.Recipient, req.Amount); notifyErr != nil {
			s.logger.WarnContext(ctx, "transfer notification failed",
				slog.String("error", notifyErr.Error()),
			)
		}
	}
	return nil
}

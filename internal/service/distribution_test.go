package service

import (
	"context"
	"errors"
	"testing"

	"github.com/verifychain/verifychain/internal/domain"
)

type stubTransferrer struct {
	confirmed bool
	err       error
	calls     int

	gotRecipient string
	gotAmount    int64
}

func (s *stubTransferrer) Transfer(ctx context.Context, recipient string, amount int64) (bool, error) {
	s.calls++
	s.gotRecipient = recipient
	s.gotAmount = amount
	return s.confirmed, s.err
}

const validRecipient = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func TestSubmitTransferValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.TransferRequest
		wantErr error
	}{
		{
			"empty recipient",
			domain.TransferRequest{Amount: 10},
			domain.ErrInputMissing,
		},
		{
			"malformed recipient",
			domain.TransferRequest{Recipient: "not-an-address", Amount: 10},
			domain.ErrInvalidRequest,
		},
		{
			"zero amount",
			domain.TransferRequest{Recipient: validRecipient, Amount: 0},
			domain.ErrInvalidRequest,
		},
		{
			"negative amount",
			domain.TransferRequest{Recipient: validRecipient, Amount: -5},
			domain.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &stubTransferrer{confirmed: true}
			svc := NewDistributionService(ledger, nil, nil, "", discardLogger())

			err := svc.SubmitTransfer(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			// Validation failures never reach the ledger.
			if ledger.calls != 0 {
				t.Errorf("ledger called %d times, want 0", ledger.calls)
			}
		})
	}
}

func TestSubmitTransferConfirmed(t *testing.T) {
	ledger := &stubTransferrer{confirmed: true}
	svc := NewDistributionService(ledger, nil, nil, "", discardLogger())

	err := svc.SubmitTransfer(context.Background(), domain.TransferRequest{
		Recipient: validRecipient,
		Amount:    250,
	})
	if err != nil {
		t.Fatalf("SubmitTransfer(): %v", err)
	}
	if ledger.calls != 1 {
		t.Errorf("ledger called %d times, want 1", ledger.calls)
	}
	if ledger.gotRecipient != validRecipient || ledger.gotAmount != 250 {
		t.Errorf("ledger got (%q, %d), want (%q, 250)", ledger.gotRecipient, ledger.gotAmount, validRecipient)
	}
}

func TestSubmitTransferRevertedPassesThrough(t *testing.T) {
	revert := errors.New("ledger: transaction reverted: insufficient balance")
	ledger := &stubTransferrer{err: revert}
	svc := NewDistributionService(ledger, nil, nil, "", discardLogger())

	err := svc.SubmitTransfer(context.Background(), domain.TransferRequest{
		Recipient: validRecipient,
		Amount:    10,
	})
	if !errors.Is(err, revert) {
		t.Fatalf("err = %v, want wrapped %v", err, revert)
	}
	// One submission, no retry.
	if ledger.calls != 1 {
		t.Errorf("ledger called %d times, want 1", ledger.calls)
	}
}

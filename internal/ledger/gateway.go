// Package ledger drives the BondRegistry contract on the distributed ledger:
// asset creation, token transfer, and the read surface the registry cache is
// rebuilt from. Transactions are signed locally, submitted once, and tracked
// to confirmation with a bounded timeout; the gateway never retries, so a
// resubmission decision (and its duplicate-mutation risk) stays with the
// caller.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/verifychain/verifychain/internal/crypto"
	"github.com/verifychain/verifychain/internal/domain"
)

// Config holds gateway parameters.
type Config struct {
	// ContractAddress is the deployed BondRegistry address.
	ContractAddress string

	// GasLimit is the fallback gas limit when estimation fails without a
	// decodable revert reason.
	GasLimit uint64

	// ConfirmTimeout bounds the wait for transaction inclusion.
	ConfirmTimeout time.Duration

	// PollInterval is the receipt polling cadence.
	PollInterval time.Duration
}

// Gateway submits transactions to the BondRegistry contract and reads its
// state. Mutating calls from the single signing account are serialized: a
// second mutation is not submitted until the prior one confirms or
// definitively fails, respecting the ledger's per-account nonce ordering.
type Gateway struct {
	backend  Backend
	signer   *crypto.Signer
	contract common.Address

	gasLimit       uint64
	confirmTimeout time.Duration
	pollInterval   time.Duration

	// mu serializes mutating transactions from the signing account.
	mu     sync.Mutex
	logger *slog.Logger
}

// NewGateway creates a Gateway bound to the given backend, signer, and
// contract.
func NewGateway(backend Backend, signer *crypto.Signer, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.ContractAddress)
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 90 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 1_500_000
	}

	return &Gateway{
		backend:        backend,
		signer:         signer,
		contract:       common.HexToAddress(cfg.ContractAddress),
		gasLimit:       cfg.GasLimit,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   cfg.PollInterval,
		logger:         logger.With(slog.String("component", "ledger_gateway")),
	}, nil
}

// ContractAddress returns the registry contract address the gateway drives.
func (g *Gateway) ContractAddress() string {
	return g.contract.Hex()
}

// AccountAddress returns the signing account's address.
func (g *Gateway) AccountAddress() string {
	return g.signer.Address().Hex()
}

// CreateAsset submits a mintBond transaction and blocks until the ledger
// confirms inclusion, returning the ledger-assigned asset id. Amounts are in
// the ledger's smallest unit; yield is in basis points. Fails with
// domain.ErrTxRejected before submission, domain.ErrTxReverted (reason
// attached verbatim when the ledger provides one) on execution failure, or
// domain.ErrConfirmationTimeout when inclusion is not observed in time.
func (g *Gateway) CreateAsset(ctx context.Context, name, isin string, faceValue, yieldBps int64, contentHash, ipfsRef string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("ledger: %w: asset name must not be empty", domain.ErrTxRejected)
	}
	if faceValue <= 0 {
		return 0, fmt.Errorf("ledger: %w: face value must be positive, got %d", domain.ErrTxRejected, faceValue)
	}
	if yieldBps < 0 {
		return 0, fmt.Errorf("ledger: %w: yield must not be negative, got %d bps", domain.ErrTxRejected, yieldBps)
	}

	calldata, err := registryABI.Pack("mintBond", name, isin, big.NewInt(faceValue), big.NewInt(yieldBps), contentHash, ipfsRef)
	if err != nil {
		return 0, fmt.Errorf("ledger: %w: pack mintBond: %v", domain.ErrTxRejected, err)
	}

	receipt, err := g.submit(ctx, calldata)
	if err != nil {
		return 0, fmt.Errorf("ledger: create asset: %w", err)
	}

	id, ok := mintedID(receipt)
	if !ok {
		// Older registry deployments do not emit BondMinted; fall back to
		// the counter, which is the id just assigned.
		n, err := g.NextAssetID(ctx)
		if err != nil {
			return 0, fmt.Errorf("ledger: create asset confirmed but id lookup failed: %w", err)
		}
		id = n
	}

	g.logger.InfoContext(ctx, "asset created",
		slog.Int64("asset_id", id),
		slog.String("isin", isin),
		slog.String("tx", receipt.TxHash.Hex()),
	)
	return id, nil
}

// Transfer submits a token transfer and blocks until confirmation. Recipient
// syntax and amount positivity are validated before submission; balance
// sufficiency is the ledger's rule and surfaces as domain.ErrTxReverted.
func (g *Gateway) Transfer(ctx context.Context, recipient string, amount int64) (bool, error) {
	if !common.IsHexAddress(recipient) {
		return false, fmt.Errorf("ledger: %w: malformed recipient address %q", domain.ErrTxRejected, recipient)
	}
	if amount <= 0 {
		return false, fmt.Errorf("ledger: %w: amount must be positive, got %d", domain.ErrTxRejected, amount)
	}

	calldata, err := registryABI.Pack("transfer", common.HexToAddress(recipient), big.NewInt(amount))
	if err != nil {
		return false, fmt.Errorf("ledger: %w: pack transfer: %v", domain.ErrTxRejected, err)
	}

	receipt, err := g.submit(ctx, calldata)
	if err != nil {
		return false, fmt.Errorf("ledger: transfer: %w", err)
	}

	g.logger.InfoContext(ctx, "transfer confirmed",
		slog.String("recipient", recipient),
		slog.Int64("amount", amount),
		slog.String("tx", receipt.TxHash.Hex()),
	)
	return true, nil
}

// NextAssetID returns the ledger's asset counter: ids are 1-based and
// monotonic, so this is also the id of the most recently minted asset.
func (g *Gateway) NextAssetID(ctx context.Context) (int64, error) {
	out, err := g.call(ctx, "bondCount")
	if err != nil {
		return 0, fmt.Errorf("ledger: bond count: %w", err)
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("ledger: bond count: unexpected return type %T", out[0])
	}
	return count.Int64(), nil
}

// Asset reads one asset record by id. Ids beyond the current count resolve to
// domain.ErrNotFound rather than a transport error.
func (g *Gateway) Asset(ctx context.Context, id int64) (domain.Asset, error) {
	if id < 1 {
		return domain.Asset{}, fmt.Errorf("ledger: asset id must be >= 1, got %d: %w", id, domain.ErrNotFound)
	}

	out, err := g.call(ctx, "bonds", big.NewInt(id))
	if err != nil {
		return domain.Asset{}, fmt.Errorf("ledger: read asset %d: %w", id, err)
	}

	asset, err := unpackAsset(id, out)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("ledger: read asset %d: %w", id, err)
	}

	// The contract returns a zero struct for unassigned ids.
	if asset.Name == "" && !asset.Active && asset.FaceValue == 0 {
		return domain.Asset{}, fmt.Errorf("ledger: asset %d not minted: %w", id, domain.ErrNotFound)
	}
	return asset, nil
}

// BalanceOf returns the token balance of the given account in the ledger's
// smallest unit.
func (g *Gateway) BalanceOf(ctx context.Context, address string) (int64, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("ledger: %w: malformed address %q", domain.ErrInvalidRequest, address)
	}

	out, err := g.call(ctx, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("ledger: balance of %s: %w", address, err)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("ledger: balance of %s: unexpected return type %T", address, out[0])
	}
	return bal.Int64(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// submit signs, sends, and confirms one mutating transaction. The lock holds
// until the transaction confirms or definitively fails so a second mutation
// never races the account nonce.
func (g *Gateway) submit(ctx context.Context, calldata []byte) (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	from := g.signer.Address()

	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: query nonce: %v", domain.ErrTxRejected, err)
	}

	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query gas price: %v", domain.ErrTxRejected, err)
	}

	msg := ethereum.CallMsg{From: from, To: &g.contract, Data: calldata}
	gas, err := g.backend.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation usually fails because the call would revert; surface
		// the ledger's reason now instead of burning gas to learn it.
		if reason := g.revertReason(ctx, calldata, nil); reason != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrTxReverted, reason)
		}
		gas = g.gasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &g.contract,
		Value:    big.NewInt(0),
		Data:     calldata,
	})

	signed, err := g.signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTxRejected, err)
	}

	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: send: %v", domain.ErrTxRejected, err)
	}

	g.logger.DebugContext(ctx, "transaction submitted",
		slog.String("tx", signed.Hash().Hex()),
		slog.Uint64("nonce", nonce),
	)

	return g.waitConfirmed(ctx, signed.Hash(), calldata)
}

// waitConfirmed polls for the transaction receipt until the confirmation
// timeout elapses. Once a transaction is on the wire the ledger operation
// runs to completion regardless of client-side abandonment, so polling
// detaches from the caller's cancellation and is bounded only by the
// configured timeout.
func (g *Gateway) waitConfirmed(ctx context.Context, txHash common.Hash, calldata []byte) (*types.Receipt, error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.backend.TransactionReceipt(wctx, txHash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				reason := g.revertReason(wctx, calldata, receipt.BlockNumber)
				if reason == "" {
					return nil, fmt.Errorf("%w: tx %s", domain.ErrTxReverted, txHash.Hex())
				}
				return nil, fmt.Errorf("%w: %s", domain.ErrTxReverted, reason)
			}
			return receipt, nil

		case errors.Is(err, ethereum.NotFound):
			// Not yet included; keep polling.

		default:
			g.logger.DebugContext(wctx, "receipt poll failed",
				slog.String("tx", txHash.Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-wctx.Done():
			return nil, fmt.Errorf("%w: tx %s after %s", domain.ErrConfirmationTimeout, txHash.Hex(), g.confirmTimeout)
		case <-ticker.C:
		}
	}
}

// revertReason re-executes the calldata as a read-only call to recover the
// ledger-provided revert string. It returns "" when no reason can be decoded;
// the raw reason is passed through verbatim so callers can distinguish causes
// (for example a compliance whitelist rejection) without the gateway
// special-casing them.
func (g *Gateway) revertReason(ctx context.Context, calldata []byte, blockNumber *big.Int) string {
	msg := ethereum.CallMsg{From: g.signer.Address(), To: &g.contract, Data: calldata}

	data, err := g.backend.CallContract(ctx, msg, blockNumber)
	if err != nil {
		// Some nodes embed the revert payload in the RPC error itself.
		var de rpc.DataError
		if errors.As(err, &de) {
			if s, ok := de.ErrorData().(string); ok {
				if raw, decErr := hexutil.Decode(s); decErr == nil {
					if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
						return reason
					}
				}
			}
		}
		return err.Error()
	}

	if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
		return reason
	}
	return ""
}

// call packs, executes, and unpacks a read-only contract call at the latest
// block.
func (g *Gateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	calldata, err := registryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{From: g.signer.Address(), To: &g.contract, Data: calldata}
	data, err := g.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := registryABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// mintedID extracts the ledger-assigned asset id from a BondMinted event in
// the receipt logs.
func mintedID(receipt *types.Receipt) (int64, bool) {
	eventID := registryABI.Events["BondMinted"].ID
	for _, lg := range receipt.Logs {
		if len(lg.Topics) >= 2 && lg.Topics[0] == eventID {
			return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64(), true
		}
	}
	return 0, false
}

// unpackAsset converts the bonds(id) tuple into a domain Asset.
func unpackAsset(id int64, out []any) (domain.Asset, error) {
	if len(out) != 8 {
		return domain.Asset{}, fmt.Errorf("expected 8 outputs, got %d", len(out))
	}

	name, ok0 := out[0].(string)
	isin, ok1 := out[1].(string)
	faceValue, ok2 := out[2].(*big.Int)
	yieldBps, ok3 := out[3].(*big.Int)
	lastUpdate, ok4 := out[4].(*big.Int)
	docHash, ok5 := out[5].(string)
	ipfsLink, ok6 := out[6].(string)
	active, ok7 := out[7].(bool)
	if !(ok0 && ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return domain.Asset{}, fmt.Errorf("unexpected tuple shape")
	}

	return domain.Asset{
		ID:          id,
		Name:        name,
		ISIN:        isin,
		FaceValue:   faceValue.Int64(),
		YieldBps:    yieldBps.Int64(),
		LastUpdate:  time.Unix(lastUpdate.Int64(), 0).UTC(),
		ContentHash: docHash,
		IPFSRef:     ipfsLink,
		Active:      active,
	}, nil
}

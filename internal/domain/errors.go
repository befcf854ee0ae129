package domain

import "errors"

// Sentinel errors for the verification and tokenization core. Callers match
// these with errors.Is; lower layers wrap them with context via fmt.Errorf.
var (
	// ErrInputMissing indicates a submission without a document or a
	// transfer without a recipient.
	ErrInputMissing = errors.New("required input missing")

	// ErrAnalysisUnavailable indicates the document analysis service could
	// not produce a result. The submission is terminal; no score is kept.
	ErrAnalysisUnavailable = errors.New("document analysis unavailable")

	// ErrOracleUnavailable indicates the market data oracle could not be
	// reached or did not answer in time.
	ErrOracleUnavailable = errors.New("market oracle unavailable")

	// ErrMalformedResponse indicates an external service answered with a
	// payload that failed shape validation. Partial data is never kept.
	ErrMalformedResponse = errors.New("malformed external response")

	// ErrTimeout classifies an external call that exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrUnreachable classifies an external service that could not be
	// reached at the transport level.
	ErrUnreachable = errors.New("service unreachable")

	// ErrReserveInsufficient is the designed terminal outcome of the reserve
	// check: the extracted face value is zero or negative. This is a
	// business-rule failure, not a transport error.
	ErrReserveInsufficient = errors.New("reserve face value insufficient")

	// ErrInvalidRequest indicates a request that failed local validation
	// (bad address, non-positive amount) before any ledger round-trip.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTxRejected indicates pre-submission validation of a ledger
	// transaction failed; nothing was sent to the chain.
	ErrTxRejected = errors.New("transaction rejected")

	// ErrTxReverted indicates the ledger executed and reverted the
	// transaction. The ledger-provided reason string, when available, is
	// carried verbatim in the wrapping error.
	ErrTxReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout indicates a submitted transaction was not
	// confirmed within the configured window. The transaction may still
	// land later; resubmission is the caller's decision.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrNotFound is returned by caches and stores for missing entries.
	ErrNotFound = errors.New("not found")

	// ErrStageOrder indicates a trust score stage was applied out of the
	// defined pipeline order.
	ErrStageOrder = errors.New("stage applied out of order")
)

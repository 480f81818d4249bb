package lending

import "errors"

// Configuration errors.
var (
	ErrIRMNotEnabled        = errors.New("lending: irm not enabled")
	ErrLLTVNotEnabled       = errors.New("lending: lltv not enabled")
	ErrMarketAlreadyCreated = errors.New("lending: market already created")
	ErrMarketNotCreated     = errors.New("lending: market not created")
	ErrAlreadySet           = errors.New("lending: already set")
	ErrMaxLLTVExceeded      = errors.New("lending: max lltv exceeded")
	ErrUnknownToken         = errors.New("lending: unknown token")
	ErrUnknownOracle        = errors.New("lending: unknown oracle")
	ErrUnknownRateModel     = errors.New("lending: unknown rate model")
	ErrNoCallback           = errors.New("lending: sender does not implement callback")
	ErrNotConfigured        = errors.New("lending: engine not configured")
)

// Input errors.
var (
	ErrInconsistentInput = errors.New("lending: inconsistent input")
	ErrZeroAssets        = errors.New("lending: zero assets")
	ErrZeroAddress       = errors.New("lending: zero address")
	ErrSignatureExpired  = errors.New("lending: signature expired")
	ErrInvalidNonce      = errors.New("lending: invalid nonce")
	ErrInvalidSignature  = errors.New("lending: invalid signature")
)

// Authorization errors.
var (
	ErrNotOwner     = errors.New("lending: not owner")
	ErrUnauthorized = errors.New("lending: unauthorized")
)

// Invariant errors.
var (
	ErrInsufficientLiquidity  = errors.New("lending: insufficient liquidity")
	ErrInsufficientCollateral = errors.New("lending: insufficient collateral")
	ErrHealthyPosition        = errors.New("lending: position is healthy")
	ErrInsufficientShares     = errors.New("lending: insufficient shares")
	ErrInsufficientBalance    = errors.New("lending: amount exceeds position balance")
	ErrArithmetic             = errors.New("lending: arithmetic error")
	ErrClockRegression        = errors.New("lending: timestamp before last update")
	ErrTimestampMismatch      = errors.New("lending: nested call at a different timestamp")
)

// Bounds and operational errors.
var (
	ErrMaxFeeExceeded = errors.New("lending: max fee exceeded")
	ErrActionPaused   = errors.New("lending: action paused")
)

package core

import "errors"

// Transaction-level rejection errors. These fire before any state is
// touched: the caller keeps its balance and nonce, and the transaction
// produces no receipt. Each maps to a canonical exception name via
// ExceptionName, which is what a state-test harness compares against.
var (
	ErrInvalidChainID     = errors.New("transaction chain ID does not match")
	ErrTipAboveFeeCap     = errors.New("max priority fee per gas higher than max fee per gas")
	ErrFeeCapTooLow       = errors.New("max fee per gas less than block base fee")
	ErrNonceMax           = errors.New("nonce has reached its maximum value")
	ErrSenderNoEOA        = errors.New("sender is not an externally owned account")
	ErrInitCodeTooLarge   = errors.New("initcode exceeds maximum size")
	ErrGasLimitTooHigh    = errors.New("transaction gas limit exceeds protocol maximum")
	ErrFloorGasTooLow     = errors.New("gas limit below calldata floor cost")
	ErrTxTypeNotSupported = errors.New("transaction type not supported")
	ErrGasPriceOverflow   = errors.New("gas limit times price overflows")

	// Blob (type 3) specific.
	ErrBlobTxCreate             = errors.New("blob transaction cannot create a contract")
	ErrNoBlobs                  = errors.New("blob transaction carries no blobs")
	ErrTooManyBlobs             = errors.New("blob transaction exceeds the blob count limit")
	ErrInvalidBlobVersionedHash = errors.New("blob versioned hash has an unknown version")
	ErrBlobTxPreFork            = errors.New("blob transaction before the Cancun fork")
	ErrBlobFeeCapTooLow         = errors.New("max fee per blob gas less than blob base fee")

	// Set-code (type 4) specific.
	ErrSetCodeTxCreate   = errors.New("set code transaction cannot create a contract")
	ErrEmptyAuthList     = errors.New("set code transaction with empty authorization list")
	ErrSetCodeTxPreFork  = errors.New("set code transaction before the Prague fork")
	ErrAuthListMalformed = errors.New("authorization entry malformed")
)

// TxGasLimitCap is the per-transaction gas cap introduced by EIP-7825
// (Osaka): 2^24.
const TxGasLimitCap uint64 = 1 << 24

// ExceptionName renders a transaction rejection as its canonical
// state-test exception string. Errors outside the taxonomy yield the
// empty string; wrapped errors are unwrapped via errors.Is.
func ExceptionName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBlobTxCreate):
		return "TYPE_3_TX_CONTRACT_CREATION"
	case errors.Is(err, ErrNoBlobs):
		return "TYPE_3_TX_ZERO_BLOBS"
	case errors.Is(err, ErrTooManyBlobs):
		return "TYPE_3_TX_BLOB_COUNT_EXCEEDED"
	case errors.Is(err, ErrInvalidBlobVersionedHash):
		return "TYPE_3_TX_INVALID_BLOB_VERSIONED_HASH"
	case errors.Is(err, ErrBlobTxPreFork):
		return "TYPE_3_TX_PRE_FORK"
	case errors.Is(err, ErrBlobFeeCapTooLow):
		return "INSUFFICIENT_MAX_FEE_PER_BLOB_GAS"
	case errors.Is(err, ErrSetCodeTxCreate):
		return "TYPE_4_TX_CONTRACT_CREATION"
	case errors.Is(err, ErrEmptyAuthList):
		return "TYPE_4_EMPTY_AUTHORIZATION_LIST"
	case errors.Is(err, ErrSetCodeTxPreFork):
		return "TYPE_4_TX_PRE_FORK"
	case errors.Is(err, ErrAuthListMalformed):
		return "TYPE_4_INVALID_AUTHORIZATION_FORMAT"
	case errors.Is(err, ErrTipAboveFeeCap):
		return "PRIORITY_GREATER_THAN_MAX_FEE_PER_GAS"
	case errors.Is(err, ErrFeeCapTooLow):
		return "INSUFFICIENT_MAX_FEE_PER_GAS"
	case errors.Is(err, ErrFloorGasTooLow):
		return "INTRINSIC_GAS_BELOW_FLOOR_GAS_COST"
	case errors.Is(err, ErrIntrinsicGasTooLow):
		return "INTRINSIC_GAS_TOO_LOW"
	case errors.Is(err, ErrGasLimitExceeded), errors.Is(err, ErrGasPoolExhausted):
		return "GAS_ALLOWANCE_EXCEEDED"
	case errors.Is(err, ErrGasLimitTooHigh):
		return "GAS_LIMIT_EXCEEDS_MAXIMUM"
	case errors.Is(err, ErrNonceMax):
		return "NONCE_IS_MAX"
	case errors.Is(err, ErrNonceTooHigh):
		return "NONCE_MISMATCH_TOO_HIGH"
	case errors.Is(err, ErrNonceTooLow):
		return "NONCE_MISMATCH_TOO_LOW"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_ACCOUNT_FUNDS"
	case errors.Is(err, ErrSenderNoEOA):
		return "SENDER_NOT_EOA"
	case errors.Is(err, ErrInitCodeTooLarge):
		return "INITCODE_SIZE_EXCEEDED"
	case errors.Is(err, ErrInvalidChainID):
		return "INVALID_CHAINID"
	case errors.Is(err, ErrTxTypeNotSupported):
		return "TYPE_NOT_SUPPORTED"
	case errors.Is(err, ErrGasPriceOverflow):
		return "GASLIMIT_PRICE_PRODUCT_OVERFLOW"
	default:
		return ""
	}
}

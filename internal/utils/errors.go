package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by the storefront core wraps exactly one
// of these so handlers and callers can branch with errors.Is.
var (
	ErrValidation           = errors.New("VALIDATION_ERROR")
	ErrNotFound             = errors.New("NOT_FOUND")
	ErrMinimumNotMet        = errors.New("MINIMUM_NOT_MET")
	ErrSchemaMismatch       = errors.New("SCHEMA_MISMATCH")
	ErrPayloadTooLarge      = errors.New("PAYLOAD_TOO_LARGE")
	ErrNetworkUnavailable   = errors.New("NETWORK_UNAVAILABLE")
	ErrPartialImportFailure = errors.New("PARTIAL_IMPORT_FAILURE")
	ErrConflict             = errors.New("CONFLICT")
)

// Specific application errors, each classified under a kind.
var (
	ErrEmptyCart          = newCodedError("EMPTY_CART", ErrValidation)
	ErrNegativeStock      = newCodedError("NEGATIVE_STOCK", ErrValidation)
	ErrInvalidSalePrice   = newCodedError("INVALID_SALE_PRICE", ErrValidation)
	ErrInvalidQuantity    = newCodedError("INVALID_QUANTITY", ErrValidation)
	ErrDuplicateVariant   = newCodedError("DUPLICATE_VARIANT", ErrValidation)
	ErrDuplicateDiscount  = newCodedError("DUPLICATE_DISCOUNT", ErrValidation)
	ErrInvalidStatus      = newCodedError("INVALID_STATUS", ErrValidation)
	ErrVariantUnavailable = newCodedError("VARIANT_UNAVAILABLE", ErrValidation)
	ErrProductNotFound    = newCodedError("PRODUCT_NOT_FOUND", ErrNotFound)
	ErrVariantNotFound    = newCodedError("VARIANT_NOT_FOUND", ErrNotFound)
	ErrDiscountNotFound   = newCodedError("DISCOUNT_NOT_FOUND", ErrNotFound)
	ErrOrderNotFound      = newCodedError("ORDER_NOT_FOUND", ErrNotFound)
	ErrCartNotFound       = newCodedError("CART_NOT_FOUND", ErrNotFound)
	ErrCartItemNotFound   = newCodedError("CART_ITEM_NOT_FOUND", ErrNotFound)
	ErrBrandNotFound      = newCodedError("BRAND_NOT_FOUND", ErrNotFound)
	ErrDeviceNotFound     = newCodedError("DEVICE_NOT_FOUND", ErrNotFound)
	ErrSlideNotFound      = newCodedError("SLIDE_NOT_FOUND", ErrNotFound)
	ErrOutboxNotFound     = newCodedError("SYNC_ENTRY_NOT_FOUND", ErrNotFound)
	ErrCheckoutInProgress = newCodedError("CHECKOUT_IN_PROGRESS", ErrConflict)
	ErrSyncEntryNotFailed = newCodedError("SYNC_ENTRY_NOT_FAILED", ErrConflict)
)

// ErrOrderNotPlaced marks a checkout that failed before the order was
// persisted. It is always joined with the underlying kind.
var ErrOrderNotPlaced = errors.New("ORDER_NOT_PLACED")

type codedError struct {
	code string
	kind error
}

func newCodedError(code string, kind error) error {
	return &codedError{code: code, kind: kind}
}

func (e *codedError) Error() string { return e.code }
func (e *codedError) Unwrap() error { return e.kind }

// ValidationError carries field level detail for a rejected write.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// NewValidationError builds a ValidationError classified under cause, which
// defaults to ErrValidation.
func NewValidationError(field, reason string, cause error) *ValidationError {
	if cause == nil {
		cause = ErrValidation
	}
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Kind returns the error kind sentinel err is classified under, or nil when
// err does not belong to any kind.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation, ErrNotFound, ErrMinimumNotMet, ErrSchemaMismatch,
		ErrPayloadTooLarge, ErrNetworkUnavailable, ErrPartialImportFailure,
		ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns the most specific API error code for err.
func Code(err error) string {
	if errors.Is(err, ErrOrderNotPlaced) {
		return ErrOrderNotPlaced.Error()
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	if k := Kind(err); k != nil {
		return k.Error()
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus maps an error to the status code used in API responses.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrMinimumNotMet:
		return http.StatusUnprocessableEntity
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNetworkUnavailable, ErrSchemaMismatch:
		return http.StatusServiceUnavailable
	case ErrPartialImportFailure:
		return http.StatusMultiStatus
	case ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrRateLimited        = errors.New("too many requests")
)

// Ledger errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrSelfTransfer          = errors.New("cannot transfer to yourself")
	ErrReceiverNotFound      = errors.New("receiver not found")
	ErrStorageFailure        = errors.New("storage failure")
	ErrUnsupportedCurrency   = errors.New("unsupported currency")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrConcurrentUpdate      = errors.New("wallet was modified concurrently")
	ErrTransactionFinalized  = errors.New("transaction already finalized")
	ErrPaymentGateway        = errors.New("payment gateway error")
)

// Error codes rendered to clients
const (
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeBadRequest           = "BAD_REQUEST"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	CodeSelfTransfer         = "SELF_TRANSFER"
	CodeReceiverNotFound     = "RECEIVER_NOT_FOUND"
	CodeStorageFailure       = "STORAGE_FAILURE"
	CodeUnsupportedCurrency  = "UNSUPPORTED_CURRENCY"
	CodeConcurrentUpdate     = "CONCURRENT_UPDATE"
	CodeTransactionFinalized = "TRANSACTION_FINALIZED"
	CodePaymentGateway       = "PAYMENT_GATEWAY_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func TooManyRequests(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeRateLimited, message, ErrRateLimited)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
		Err:     err,
	}
}

type mapping struct {
	target error
	status int
	code   string
}

// Ordered: ErrConcurrentUpdate is wrapped in ErrStorageFailure and must match first.
var mappings = []mapping{
	{ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount},
	{ErrUnsupportedCurrency, http.StatusBadRequest, CodeUnsupportedCurrency},
	{ErrUnsupportedConversion, http.StatusBadRequest, CodeUnsupportedCurrency},
	{ErrSelfTransfer, http.StatusBadRequest, CodeSelfTransfer},
	{ErrInsufficientBalance, http.StatusUnprocessableEntity, CodeInsufficientBalance},
	{ErrReceiverNotFound, http.StatusNotFound, CodeReceiverNotFound},
	{ErrTransactionFinalized, http.StatusConflict, CodeTransactionFinalized},
	{ErrConcurrentUpdate, http.StatusConflict, CodeConcurrentUpdate},
	{ErrStorageFailure, http.StatusServiceUnavailable, CodeStorageFailure},
	{ErrPaymentGateway, http.StatusBadGateway, CodePaymentGateway},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
	{ErrAlreadyExists, http.StatusConflict, CodeConflict},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrForbidden, http.StatusForbidden, CodeForbidden},
	{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
}

// FromError converts any error into an AppError, keeping AppErrors as they are
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return NewAppError(m.status, m.code, m.target.Error(), err)
		}
	}
	return InternalError(err)
}

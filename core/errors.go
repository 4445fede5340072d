package core

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorCredentialUnavailable = "CLIENT_CREDENTIAL_UNAVAILABLE"
	ClientErrorRenewalFailed         = "CLIENT_RENEWAL_FAILED"
	ClientErrorRequestTimeout        = "CLIENT_REQUEST_TIMEOUT"
	ClientErrorServerError           = "CLIENT_SERVER_ERROR"
	ClientErrorNetworkUnreachable    = "CLIENT_NETWORK_UNREACHABLE"
	ClientErrorAuthorizationDenied   = "CLIENT_AUTHORIZATION_DENIED"
	ClientErrorQueueCleared          = "CLIENT_QUEUE_CLEARED"
	ClientErrorQueueOverflow         = "CLIENT_QUEUE_OVERFLOW"
	ClientErrorBadInput              = "CLIENT_BAD_INPUT"
	ClientErrorInternal              = "CLIENT_INTERNAL_ERROR"
)

// ErrorClass is the dispatcher's failure classification. Every failed
// transmit resolves to exactly one class.
type ErrorClass string

const (
	ErrorClassNone          ErrorClass = "none"
	ErrorClassAuthorization ErrorClass = "authorization"
	ErrorClassTimeout       ErrorClass = "timeout"
	ErrorClassServer        ErrorClass = "server"
	ErrorClassNetwork       ErrorClass = "network"
	ErrorClassOther         ErrorClass = "other"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return newClientError(err.Error(), goerrors.CategoryExternal, ClientErrorRequestTimeout)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"):
		return newClientError(err.Error(), goerrors.CategoryExternal, ClientErrorNetworkUnreachable)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newClientError(err.Error(), goerrors.CategoryBadInput, ClientErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func newClientError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureClientErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func wrapClientError(source error, category goerrors.Category, message string, textCode string) *goerrors.Error {
	if source == nil {
		return newClientError(message, category, textCode)
	}
	return ensureClientErrorEnvelope(
		goerrors.Wrap(source, category, message).
			WithTextCode(textCode),
	)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.TextCode, err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryAuth:
		return ClientErrorCredentialUnavailable
	case goerrors.CategoryAuthz:
		return ClientErrorAuthorizationDenied
	case goerrors.CategoryRateLimit:
		return ClientErrorQueueOverflow
	case goerrors.CategoryExternal:
		return ClientErrorServerError
	case goerrors.CategoryConflict, goerrors.CategoryOperation:
		return ClientErrorQueueCleared
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(textCode string, category goerrors.Category) int {
	switch textCode {
	case ClientErrorCredentialUnavailable, ClientErrorRenewalFailed:
		return http.StatusUnauthorized
	case ClientErrorAuthorizationDenied:
		return http.StatusForbidden
	case ClientErrorRequestTimeout:
		return http.StatusGatewayTimeout
	case ClientErrorServerError:
		return http.StatusBadGateway
	case ClientErrorNetworkUnreachable:
		return http.StatusServiceUnavailable
	case ClientErrorQueueCleared:
		return http.StatusConflict
	case ClientErrorQueueOverflow:
		return http.StatusTooManyRequests
	case ClientErrorBadInput:
		return http.StatusBadRequest
	}
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// TextCode extracts the client text code from any error chain.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return strings.TrimSpace(richErr.TextCode)
	}
	return ""
}

// ClassifyFailure maps one transmit outcome to exactly one error class.
// Transport errors carry text codes from the transport package; plain
// network errors are sniffed the same way the transport does, so the
// classifier also works with bare http.Client failures.
func ClassifyFailure(resp Response, err error) ErrorClass {
	if err != nil {
		switch TextCode(err) {
		case ClientErrorRequestTimeout:
			return ErrorClassTimeout
		case ClientErrorNetworkUnreachable:
			return ErrorClassNetwork
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrorClassTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrorClassTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return ErrorClassNetwork
		}
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			return ErrorClassTimeout
		}
		if strings.Contains(msg, "connection refused") ||
			strings.Contains(msg, "connection reset") ||
			strings.Contains(msg, "no such host") ||
			strings.Contains(msg, "network is unreachable") {
			return ErrorClassNetwork
		}
		return ErrorClassOther
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrorClassAuthorization
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusGatewayTimeout:
		return ErrorClassTimeout
	case resp.StatusCode >= http.StatusInternalServerError:
		return ErrorClassServer
	}
	return ErrorClassNone
}

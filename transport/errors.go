package transport

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/goliatone/go-authclient/core"
	goerrors "github.com/goliatone/go-errors"
)

func transportError(
	message string,
	category goerrors.Category,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// classifyTransmitError splits http.Client failures into the two transport
// outcomes the dispatcher treats differently: the request timed out, or the
// host could not be reached at all.
func classifyTransmitError(source error, method string, requestURL string) error {
	metadata := map[string]any{"adapter": KindREST, "method": method, "url": requestURL}

	if isTimeoutError(source) {
		return transportWrapError(
			source,
			goerrors.CategoryExternal,
			"transport: request timed out",
			core.ClientErrorRequestTimeout,
			metadata,
		)
	}
	return transportWrapError(
		source,
		goerrors.CategoryExternal,
		"transport: host unreachable",
		core.ClientErrorNetworkUnreachable,
		metadata,
	)
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

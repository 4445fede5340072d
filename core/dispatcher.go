package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Do routes one call through the full dispatch pipeline: attach a valid
// credential, transmit, classify any failure, and apply the recovery policy
// for its class. Calls issued while offline are queued for ordered replay.
func (c *Client) Do(ctx context.Context, desc RequestDescriptor) (Response, error) {
	if c == nil {
		return Response{}, newClientError("core: client is nil", goerrors.CategoryInternal, ClientErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateDescriptor(desc); err != nil {
		return Response{}, c.mapError(err)
	}

	if c.monitor.Status() == StatusOffline {
		return c.enqueueAndWait(ctx, desc)
	}

	startedAt := c.clock.Now()
	resp, requeued, err := c.runPipeline(ctx, desc, false)
	if requeued {
		// runPipeline never requeues outside replay mode.
		return Response{}, newClientError("core: unexpected requeue", goerrors.CategoryInternal, ClientErrorInternal)
	}
	c.observeOperation(ctx, startedAt, "dispatch", err, map[string]any{
		"method": desc.Method,
		"path":   desc.Path,
	})
	return resp, err
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildDescriptor(http.MethodGet, path, nil, opts))
}

func (c *Client) Post(ctx context.Context, path string, body []byte, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildDescriptor(http.MethodPost, path, body, opts))
}

func (c *Client) Put(ctx context.Context, path string, body []byte, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildDescriptor(http.MethodPut, path, body, opts))
}

func (c *Client) Patch(ctx context.Context, path string, body []byte, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildDescriptor(http.MethodPatch, path, body, opts))
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (Response, error) {
	return c.Do(ctx, buildDescriptor(http.MethodDelete, path, nil, opts))
}

// RequestOption customizes a verb-helper descriptor.
type RequestOption func(*RequestDescriptor)

func WithQuery(query map[string]string) RequestOption {
	return func(d *RequestDescriptor) {
		d.Query = copyStringMap(query)
	}
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(d *RequestDescriptor) {
		d.Headers = copyStringMap(headers)
	}
}

func WithRequestTimeout(timeout time.Duration) RequestOption {
	return func(d *RequestDescriptor) {
		d.Timeout = timeout
	}
}

func buildDescriptor(method string, path string, body []byte, opts []RequestOption) RequestDescriptor {
	desc := RequestDescriptor{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&desc)
	}
	return desc
}

// Verify performs the identity-verification bootstrap. The credential is
// carried both as the transport header and embedded in the payload because
// this endpoint verifies the credential itself.
func (c *Client) Verify(ctx context.Context) (VerifyResult, error) {
	if c == nil {
		return VerifyResult{}, newClientError("core: client is nil", goerrors.CategoryInternal, ClientErrorInternal)
	}
	resp, err := c.Do(ctx, RequestDescriptor{
		Method:    http.MethodPost,
		Path:      c.config.VerifyPath,
		Bootstrap: true,
	})
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{}
	if len(resp.Body) > 0 {
		if decodeErr := json.Unmarshal(resp.Body, &result); decodeErr != nil {
			return VerifyResult{}, wrapClientError(
				decodeErr,
				goerrors.CategoryExternal,
				"core: decode verify response",
				ClientErrorServerError,
			)
		}
	}
	return result, nil
}

// retryContext tracks per-call retry bookkeeping. Counters are independent
// across classes; each class exhausts its own budget.
type retryContext struct {
	authAttempts   int
	timeoutRetries int
	serverRetries  int
}

// runPipeline executes the attempt loop for one descriptor. In replay mode
// a network-class failure reports requeued=true instead of enqueueing a
// fresh entry, so the original waiter is preserved.
func (c *Client) runPipeline(ctx context.Context, desc RequestDescriptor, replay bool) (Response, bool, error) {
	var retry retryContext

	for {
		cred, err := c.lifecycle.GetValidToken(ctx)
		if err != nil {
			// No call is ever attempted without a credential.
			return Response{}, false, err
		}

		req, err := c.buildTransportRequest(ctx, desc, cred)
		if err != nil {
			return Response{}, false, c.mapError(err)
		}

		resp, transmitErr := c.transport.Do(ctx, req)

		switch ClassifyFailure(resp, transmitErr) {
		case ErrorClassNone:
			c.handleRecovery(ctx)
			return resp, false, nil

		case ErrorClassAuthorization:
			retry.authAttempts++
			if retry.authAttempts > c.config.Retry.AuthRetries {
				fatal := newClientError(
					"core: request rejected after credential renewal",
					goerrors.CategoryAuthz,
					ClientErrorAuthorizationDenied,
				)
				c.forceLogout(ctx, fatal)
				return Response{}, false, fatal
			}
			if _, renewErr := c.lifecycle.RenewToken(ctx); renewErr != nil {
				return Response{}, false, renewErr
			}
			// Loop: the retry re-attaches the renewed credential.

		case ErrorClassTimeout:
			retry.timeoutRetries++
			if retry.timeoutRetries > c.config.Retry.TimeoutRetries {
				failure := wrapClientError(
					transmitErr,
					goerrors.CategoryExternal,
					"core: request timed out after retries",
					ClientErrorRequestTimeout,
				)
				c.notifier.Notify(ctx, Notice{
					Kind:    NoticeRequestTimeout,
					Message: "request timed out, try again",
					Err:     failure,
				})
				return Response{}, false, failure
			}
			delay := c.timeoutBackoff.NextDelay(retry.timeoutRetries)
			if waitErr := waitWithContext(ctx, c.clock, delay); waitErr != nil {
				return Response{}, false, c.mapError(waitErr)
			}

		case ErrorClassServer:
			retry.serverRetries++
			if retry.serverRetries > c.config.Retry.ServerErrorRetries {
				failure := newClientError(
					"core: server error after retries",
					goerrors.CategoryExternal,
					ClientErrorServerError,
				)
				c.notifier.Notify(ctx, Notice{
					Kind:    NoticeServerError,
					Message: "service is having trouble, try again later",
					Err:     failure,
				})
				return Response{}, false, failure
			}
			delay := c.serverBackoff.NextDelay(retry.serverRetries)
			if waitErr := waitWithContext(ctx, c.clock, delay); waitErr != nil {
				return Response{}, false, c.mapError(waitErr)
			}

		case ErrorClassNetwork:
			c.monitor.MarkOffline()
			if replay {
				return Response{}, true, nil
			}
			resp, err := c.enqueueAndWait(ctx, desc)
			return resp, false, err

		default:
			return Response{}, false, c.mapError(transmitErr)
		}
	}
}

func (c *Client) buildTransportRequest(ctx context.Context, desc RequestDescriptor, cred Credential) (TransportRequest, error) {
	req := TransportRequest{
		Method:  desc.Method,
		URL:     c.resolveURL(desc.Path),
		Query:   copyStringMap(desc.Query),
		Headers: copyStringMap(desc.Headers),
		Body:    desc.Body,
		Timeout: desc.Timeout,
	}
	if err := c.signer.Sign(ctx, &req, cred); err != nil {
		return TransportRequest{}, err
	}
	if desc.Bootstrap {
		body, err := embedCredentialPayload(desc.Body, cred)
		if err != nil {
			return TransportRequest{}, err
		}
		req.Body = body
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers["Content-Type"] = "application/json"
	}
	return req, nil
}

// embedCredentialPayload merges the credential into the JSON request body
// for the verification bootstrap. Retries re-run this with the freshly
// attached credential, never a stale snapshot.
func embedCredentialPayload(body []byte, cred Credential) ([]byte, error) {
	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, wrapClientError(
				err,
				goerrors.CategoryBadInput,
				"core: bootstrap body must be a json object",
				ClientErrorBadInput,
			)
		}
	}
	payload["credential"] = cred.Value
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapClientError(err, goerrors.CategoryInternal, "core: encode bootstrap payload", ClientErrorInternal)
	}
	return encoded, nil
}

func (c *Client) resolveURL(path string) string {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	base := strings.TrimRight(strings.TrimSpace(c.config.BaseURL), "/")
	if base == "" {
		return trimmed
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return base + trimmed
}

// handleRecovery promotes the status to Online after a confirmed transmit
// and triggers queue draining when the client was offline or checking.
func (c *Client) handleRecovery(ctx context.Context) {
	if !c.monitor.MarkOnline() {
		return
	}
	go c.drainQueue(context.WithoutCancel(ctx))
}

// enqueueAndWait defers the call until connectivity returns. The caller
// blocks until the queued call eventually succeeds, fails terminally, or
// the queue is cleared; callers are told the call is pending, not failed.
func (c *Client) enqueueAndWait(ctx context.Context, desc RequestDescriptor) (Response, error) {
	entry := c.queue.Enqueue(ctx, desc)
	c.notifier.Notify(ctx, Notice{
		Kind:    NoticeQueuedRetry,
		Message: "request queued, will retry when connection returns",
	})

	select {
	case <-ctx.Done():
		c.queue.remove(entry.ID)
		return Response{}, c.mapError(ctx.Err())
	case result := <-entry.result:
		return result.resp, result.err
	}
}

// drainQueue replays deferred calls in FIFO order, sequentially, each one
// re-entering the full pipeline. A replay that finds the client offline
// again stops the drain and leaves the remainder queued.
func (c *Client) drainQueue(ctx context.Context) {
	c.queue.Drain(ctx, func(ctx context.Context, entry *QueuedRequest) (Response, bool, error) {
		if c.monitor.Status() == StatusOffline {
			return Response{}, true, nil
		}
		return c.runPipeline(ctx, entry.Descriptor, true)
	})
}

// onReachableSignal runs when the connectivity source reports the network
// back. The credential check and the drain run on their own goroutine so a
// slow or failing renewal never blocks the signal source.
func (c *Client) onReachableSignal() {
	go func() {
		ctx := context.Background()
		if err := c.lifecycle.CheckAndRefresh(ctx); err != nil {
			c.logError(ctx, "credential check on reconnect failed", map[string]any{"error": err.Error()})
		}
		c.drainQueue(ctx)
	}()
}

func validateDescriptor(desc RequestDescriptor) error {
	if strings.TrimSpace(desc.Method) == "" {
		return newClientError("core: request method is required", goerrors.CategoryBadInput, ClientErrorBadInput)
	}
	if strings.TrimSpace(desc.Path) == "" {
		return newClientError("core: request path is required", goerrors.CategoryBadInput, ClientErrorBadInput)
	}
	return nil
}

package query

import (
	"context"

	"github.com/goliatone/go-authclient/core"
)

// StatusReader exposes the client's live monitoring surface.
type StatusReader interface {
	ConnectionStatus() core.ConnectionStatus
	QueueLength() int
}

// CredentialReader exposes the stored credential's validity snapshot.
type CredentialReader interface {
	CredentialState(ctx context.Context) (core.CredentialState, error)
}

type ConnectionStatusQuery struct {
	reader StatusReader
}

func NewConnectionStatusQuery(reader StatusReader) *ConnectionStatusQuery {
	return &ConnectionStatusQuery{reader: reader}
}

func (q *ConnectionStatusQuery) Query(ctx context.Context, msg ConnectionStatusMessage) (core.ConnectionStatus, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: status reader is required")
	}
	return q.reader.ConnectionStatus(), nil
}

type QueueLengthQuery struct {
	reader StatusReader
}

func NewQueueLengthQuery(reader StatusReader) *QueueLengthQuery {
	return &QueueLengthQuery{reader: reader}
}

func (q *QueueLengthQuery) Query(ctx context.Context, msg QueueLengthMessage) (int, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: status reader is required")
	}
	return q.reader.QueueLength(), nil
}

type CredentialStateQuery struct {
	reader CredentialReader
}

func NewCredentialStateQuery(reader CredentialReader) *CredentialStateQuery {
	return &CredentialStateQuery{reader: reader}
}

func (q *CredentialStateQuery) Query(ctx context.Context, msg CredentialStateMessage) (core.CredentialState, error) {
	if q == nil || q.reader == nil {
		return core.CredentialState{}, queryDependencyError("query: credential reader is required")
	}
	return q.reader.CredentialState(ctx)
}

package core

import (
	"context"
	"fmt"
	"strings"
)

// BearerTokenSigner attaches the credential as an Authorization bearer
// header. It is the default signer.
type BearerTokenSigner struct{}

func (BearerTokenSigner) Sign(_ context.Context, req *TransportRequest, cred Credential) error {
	if req == nil {
		return fmt.Errorf("core: transport request is required")
	}
	token := strings.TrimSpace(cred.Value)
	if token == "" {
		return fmt.Errorf("core: credential value is required for bearer signing")
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	return nil
}

var _ Signer = BearerTokenSigner{}

package rpcServer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxSignedBodyBytes = 1 << 20

type callerKey struct{}

// authenticate verifies the request signature over the raw body and hands the signing
// principal to h. Body fields never name the caller.
func (rpc *RpcServer) authenticate(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) error {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignedBodyBytes))
		if err != nil {
			return badRequest(fmt.Errorf("failed to read request body: %w", err))
		}
		principal, err := rpc.verifier.Verify(r, body)
		if err != nil {
			rpc.Logger.Sugar().Debugw("Rejected unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.String("requestId", r.Header.Get(requestIdHeader)),
				zap.Error(err),
			)
			return err
		}
		r = r.WithContext(context.WithValue(r.Context(), callerKey{}, principal))
		r.Body = io.NopCloser(bytes.NewReader(body))
		return h(w, r, params)
	}
}

// authenticatedCaller returns the principal that signed r, or "" on unsigned routes.
func authenticatedCaller(r *http.Request) string {
	principal, _ := r.Context().Value(callerKey{}).(string)
	return principal
}

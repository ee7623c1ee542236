package gcp

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/httpx"
)

var transientMessages = []string{
	"resource_exhausted",
	"resource exhausted",
	"quota",
	"rate limit",
	"ratelimit",
	"too many requests",
	"unavailable",
	"429",
	"503",
}

// ProviderError tags err as a transient or permanent failure of provider.
// Errors already carrying a taxonomy type pass through unchanged.
func ProviderError(provider moderation.Detector, err error) error {
	if err == nil {
		return nil
	}
	var tp *moderation.TransientProviderError
	var pp *moderation.PermanentProviderError
	var ci *moderation.ClientInputError
	if errors.As(err, &tp) || errors.As(err, &pp) || errors.As(err, &ci) {
		return err
	}
	if isTransient(err) {
		return &moderation.TransientProviderError{Provider: provider, Err: err}
	}
	return &moderation.PermanentProviderError{Provider: provider, Err: err}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return true
		case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
			return false
		}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return httpx.IsRetryableHTTPStatus(gerr.Code)
	}
	if httpx.IsRetryableError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

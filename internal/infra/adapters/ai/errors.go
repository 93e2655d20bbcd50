package ai

import (
	"context"
	"errors"
	"net"

	"social-content-ai/internal/domain"
)

// fromStatus classifies an HTTP failure reported by a provider.
func fromStatus(provider string, status int, err error) *domain.ProviderError {
	if domain.ClassifyStatus(status) == domain.ProviderTransient {
		return domain.NewTransient(provider, status, err)
	}
	return domain.NewPermanent(provider, status, err)
}

// fromTransport classifies an error that carried no HTTP status. Deadlines
// and network failures are worth retrying; everything else is not.
func fromTransport(provider string, err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) {
		return domain.NewTransient(provider, 0, err)
	}
	return domain.NewPermanent(provider, 0, err)
}

package service

import (
	"errors"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
)

// translate maps repository sentinels onto the domain error kinds. Errors
// that already carry a kind pass through.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return domain.NewNotFoundError("order not found", err)
	case errors.Is(err, repository.ErrArtworkNotFound):
		return domain.NewNotFoundError("artwork not found", err)
	case errors.Is(err, repository.ErrUserNotFound):
		return domain.NewNotFoundError("user not found", err)
	case errors.Is(err, repository.ErrRevisionConflict):
		return domain.NewConflictError("order was modified concurrently", err)
	case errors.Is(err, repository.ErrEmailTaken):
		return domain.NewConflictError("email already registered", err)
	}
	return domain.NewUpstreamError(msg, err)
}

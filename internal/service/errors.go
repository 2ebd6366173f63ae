package service

import (
	"errors"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// mapRepoError translates repository sentinels into DomainErrors.
func mapRepoError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrReferenced):
		return apperrors.NewConflict(resource+" is referenced by other records", nil)
	case errors.Is(err, repository.ErrConstraint):
		return apperrors.NewConflict(resource+" violates a data constraint", nil)
	default:
		return apperrors.NewPersistenceError(err)
	}
}

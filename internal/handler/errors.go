package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/response"
)

// writeDomainError maps the error taxonomy onto HTTP responses. Anything
// unrecognized is an internal error.
func writeDomainError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var transitionErr *domain.InvalidTransitionError
	var concurrentErr *domain.ConcurrentModificationError
	var dependencyErr *domain.DependencyUnavailableError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "Record not found")
	case errors.Is(err, domain.ErrActiveRequestExists):
		response.Conflict(c, "ACTIVE_REQUEST_EXISTS", "Transaction already has an active allocation request", "")
	case errors.Is(err, domain.ErrAlreadyResolved):
		response.Conflict(c, "ALREADY_RESOLVED", "Transaction already has a policy number", "")
	case errors.As(err, &validationErr):
		response.ValidationError(c, validationErr.Error())
	case errors.As(err, &transitionErr):
		response.Conflict(c, "INVALID_TRANSITION", "Transition not permitted", transitionErr.Error())
	case errors.As(err, &concurrentErr):
		response.Conflict(c, "CONCURRENT_MODIFICATION", "Record was modified concurrently; refetch and retry", concurrentErr.Error())
	case errors.As(err, &dependencyErr):
		response.ServiceUnavailable(c, "Backing store unavailable", dependencyErr.Error())
	default:
		response.InternalError(c, "Request failed", err.Error())
	}
}

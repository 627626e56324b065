package handler

import (
	"errors"
	"net/http"

	"restchain/internal/apperr"
	"restchain/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP statuses. Anything it does not
// recognize is reported as a bad request; handlers answer 500 themselves on
// paths where only storage can fail.
func respondError(c *gin.Context, err error) {
	var (
		denied     *apperr.AccessDeniedError
		transition *apperr.InvalidTransitionError
		late       *apperr.TaskLateError
		integrity  *apperr.TargetIntegrityError
		cycle      *apperr.CycleError
		delegation *apperr.DelegationRuleError
	)

	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.As(err, &late):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.As(err, &integrity):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.As(err, &cycle):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	case errors.As(err, &delegation):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}

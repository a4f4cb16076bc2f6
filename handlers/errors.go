package handlers

import (
	"errors"
	"net/http"

	"innkeeper/services/lifecycle"
	"innkeeper/services/payment"
	"innkeeper/services/policy"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps typed engine failures to HTTP statuses. Anything without
// a known code is a 500.
func respondError(c *gin.Context, err error) {
	var lcErr *lifecycle.LifecycleError
	if errors.As(err, &lcErr) {
		switch lcErr.Code {
		case lifecycle.CodeNotFound:
			utils.JSONDomainError(c, http.StatusNotFound, lcErr.Code, lcErr.Message)
		case lifecycle.CodeInvalidTransition, lifecycle.CodeHoldAlreadyResolved:
			utils.JSONDomainError(c, http.StatusConflict, lcErr.Code, lcErr.Error())
		case lifecycle.CodeGuardNotSatisfied:
			utils.JSONDomainError(c, http.StatusPreconditionFailed, lcErr.Code, lcErr.Message)
		default:
			utils.JSONDomainError(c, http.StatusInternalServerError, lcErr.Code, lcErr.Message)
		}
		return
	}

	var polErr *policy.PolicyError
	if errors.As(err, &polErr) {
		switch polErr.Code {
		case policy.CodeGuardNotSatisfied:
			utils.JSONDomainError(c, http.StatusPreconditionFailed, polErr.Code, polErr.Message)
		default:
			utils.JSONDomainError(c, http.StatusUnprocessableEntity, polErr.Code, polErr.Message)
		}
		return
	}

	var colErr *payment.CollaboratorError
	if errors.As(err, &colErr) {
		if colErr.Code == payment.CodeCollaboratorTimeout {
			utils.JSONDomainError(c, http.StatusGatewayTimeout, colErr.Code, colErr.Message)
		} else {
			utils.JSONDomainError(c, http.StatusBadGateway, colErr.Code, colErr.Message)
		}
		return
	}

	utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
}

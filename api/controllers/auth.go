package controllers

import (
	"net/http"

	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/auth"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// Login exchanges credentials for an access token.
func Login(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var input auth.LoginInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

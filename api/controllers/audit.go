package controllers

import (
	"net/http"

	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// ListAuditEvents returns the audit trail of one target record, oldest first.
func ListAuditEvents(auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auditor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "audit service unavailable"))
			return
		}

		targetID, err := validators.ParseUUIDParam(r, "targetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := auditor.ListByTarget(r.Context(), targetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

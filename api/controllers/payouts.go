package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/api/middleware"
	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	"github.com/voucherbay/voucherbay-backend/internal/payouts"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// ListPayouts returns the caller's payout ledger.
func ListPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), principal.ID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetPayout returns one payout for its seller or an admin.
func GetPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Get(r.Context(), id, principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

type payoutQueryRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// AddPayoutQuery appends a message to the payout's query thread. Sellers and
// admins share the handler; the service derives the sender from the role.
func AddPayoutQuery(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payoutQueryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.AddQuery(r.Context(), id, principal, body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// ListPendingPayouts returns the admin queue of unpaid payouts.
func ListPendingPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ProcessPayout marks one pending payout paid or rejected and records an
// audit event.
func ProcessPayout(svc payouts.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input payouts.ProcessInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.ProcessAdminAction(r.Context(), principal.ID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if auditor != nil {
			details, _ := json.Marshal(input)
			if _, err := auditor.Record(r.Context(), audit.RecordInput{
				ActorID:    principal.ID,
				TargetType: "payout",
				TargetID:   id,
				Action:     "payout." + input.Action,
				Details:    details,
			}); err != nil && logg != nil {
				logg.Error(r.Context(), "audit.record_failed", err)
			}
		}

		responses.WriteSuccess(w, payout)
	}
}

type bulkProcessRequest struct {
	SellerID  string `json:"seller_id" validate:"required,uuid4"`
	Reference string `json:"reference" validate:"required"`
}

// BulkProcessPayouts pays every pending payout of one seller under a single
// reference and records an audit event.
func BulkProcessPayouts(svc payouts.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body bulkProcessRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(body.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}

		result, err := svc.BulkSettle(r.Context(), principal.ID, sellerID, body.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if auditor != nil {
			details, _ := json.Marshal(result)
			if _, err := auditor.Record(r.Context(), audit.RecordInput{
				ActorID:    principal.ID,
				TargetType: "seller",
				TargetID:   sellerID,
				Action:     "payout.bulk_process",
				Details:    details,
			}); err != nil && logg != nil {
				logg.Error(r.Context(), "audit.record_failed", err)
			}
		}

		responses.WriteSuccess(w, result)
	}
}

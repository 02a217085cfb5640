package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/voucherbay/voucherbay-backend/api/middleware"
	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	"github.com/voucherbay/voucherbay-backend/internal/reveal"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// ListTransactions returns the caller's purchases, or sales when role=seller.
func ListTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
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

		var rows []models.Transaction
		if r.URL.Query().Get("role") == "seller" {
			rows, err = svc.ListSales(r.Context(), principal.ID, limit)
		} else {
			rows, err = svc.ListPurchases(r.Context(), principal.ID, limit)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetTransaction returns one transaction for its buyer, seller, or an admin.
func GetTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Get(r.Context(), id, principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// RevealScratchCode serves the decrypted voucher code to the buyer after
// payment confirmation.
func RevealScratchCode(svc reveal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reveal(r.Context(), id, principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListPendingTransactions returns the admin review queue of cash payments.
func ListPendingTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPendingReview(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// VerifyTransaction applies the admin verdict to a cash payment and records
// an audit event.
func VerifyTransaction(svc transactions.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input transactions.AdminVerifyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.AdminVerify(r.Context(), principal.ID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if auditor != nil {
			details, _ := json.Marshal(input)
			if _, err := auditor.Record(r.Context(), audit.RecordInput{
				ActorID:    principal.ID,
				TargetType: "transaction",
				TargetID:   id,
				Action:     "verify." + input.Action,
				Details:    details,
			}); err != nil && logg != nil {
				logg.Error(r.Context(), "audit.record_failed", err)
			}
		}

		responses.WriteSuccess(w, txn)
	}
}

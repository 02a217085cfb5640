package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/voucherbay/voucherbay-backend/api/middleware"
	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	"github.com/voucherbay/voucherbay-backend/internal/purchase"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

const maxListLimit = 100

// ListVouchers returns the published catalog, or the caller's own listings
// when mine=true.
func ListVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var views []vouchers.View
		if r.URL.Query().Get("mine") == "true" {
			views, err = svc.ListBySeller(r.Context(), principal.ID, limit)
		} else {
			views, err = svc.ListPublished(r.Context(), limit)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// CreateVoucher registers a new listing for moderation.
func CreateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var input vouchers.CreateListingInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.CreateListing(r.Context(), principal.ID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GetVoucher returns one listing without its code.
func GetVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteVoucher withdraws a listing that has not gone live.
func DeleteVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		voucherID, err := validators.ParseUUIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteListing(r.Context(), voucherID, principal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type purchaseRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash gateway"`
}

// PurchaseVoucher runs the eligibility gate and creates the transaction.
func PurchaseVoucher(svc purchase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		voucherID, err := validators.ParseUUIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		txn, err := svc.Execute(r.Context(), purchase.Input{
			VoucherID:     voucherID,
			Buyer:         principal,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// ModerateVoucher applies the admin verdict to a pending listing and records
// an audit event.
func ModerateVoucher(svc vouchers.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		voucherID, err := validators.ParseUUIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input vouchers.ModerateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Moderate(r.Context(), principal.ID, voucherID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if auditor != nil {
			details, _ := json.Marshal(input)
			if _, err := auditor.Record(r.Context(), audit.RecordInput{
				ActorID:    principal.ID,
				TargetType: "voucher",
				TargetID:   voucherID,
				Action:     "moderate." + input.Decision,
				Details:    details,
			}); err != nil && logg != nil {
				logg.Error(r.Context(), "audit.record_failed", err)
			}
		}

		responses.WriteSuccess(w, view)
	}
}

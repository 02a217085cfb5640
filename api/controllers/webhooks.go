package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/api/responses"
	"github.com/voucherbay/voucherbay-backend/api/validators"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

const gatewaySignatureHeader = "X-Gateway-Signature"

type gatewayCallbackRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid4"`
	Outcome       string `json:"outcome" validate:"required,oneof=success failure"`
	Reference     string `json:"reference" validate:"required"`
}

// GatewayCallback receives the payment gateway's confirmation webhook. The
// shared secret gates the endpoint; the transaction id scopes the effect.
func GatewayCallback(cfg config.GatewayConfig, svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.WebhookSecret == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway webhook not configured"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(gatewaySignatureHeader))
		if subtle.ConstantTimeCompare([]byte(signature), []byte(cfg.WebhookSecret)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var body gatewayCallbackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionID, err := uuid.Parse(body.TransactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		txn, err := svc.GatewayCallback(r.Context(), transactionID, transactions.GatewayCallbackInput{
			Outcome:   body.Outcome,
			Reference: body.Reference,
		})
		if err != nil {
			// A repeated callback for an outcome already applied is success
			// from the gateway's point of view; acknowledging stops retries.
			if pkgerrors.HasCode(err, pkgerrors.CodeAlreadyProcessed) {
				responses.WriteSuccess(w, map[string]string{"status": "acknowledged"})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"status":      "applied",
			"transaction": txn.ID.String(),
		})
	}
}

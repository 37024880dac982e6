package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/api/middleware"
	"github.com/ises-energia/scrc-backend/api/responses"
	"github.com/ises-energia/scrc-backend/api/validators"
	"github.com/ises-energia/scrc-backend/internal/closures"
	"github.com/ises-energia/scrc-backend/internal/ingest"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type closeOrderRequest struct {
	Result          string   `json:"result" validate:"required,oneof=completed failed"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	DurationMinutes *int     `json:"durationMinutes,omitempty" validate:"omitempty,min=0"`
}

// CloseOrder records a technician closure report for one order.
func CloseOrder(svc *closures.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var body closeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Close(r.Context(), closures.CloseInput{
			OrderID:         orderID,
			Result:          body.Result,
			Latitude:        body.Latitude,
			Longitude:       body.Longitude,
			DurationMinutes: body.DurationMinutes,
			Actor:           middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type ingestRequest struct {
	Orders []ingest.RawOrder `json:"orders" validate:"required,min=1"`
}

// IngestOrders upserts a batch of work orders from the commercial system.
func IngestOrders(svc *ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ingestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Ingest(r.Context(), body.Orders, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

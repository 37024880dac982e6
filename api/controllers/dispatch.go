package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/api/responses"
	"github.com/ises-energia/scrc-backend/api/validators"
	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/internal/reporting"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type autoAssignRequest struct {
	MaxOrders         int     `json:"maxOrders" validate:"required,min=1"`
	DryRun            bool    `json:"dryRun"`
	SpecificBrigadeID *string `json:"specificBrigadeId,omitempty"`
	BoostCapacity     int     `json:"boostCapacity" validate:"min=0"`
}

// DispatchAutoAssign runs one assignment batch on behalf of a dispatcher.
func DispatchAutoAssign(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body autoAssignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := dispatch.AutoAssignInput{
			MaxOrders:     body.MaxOrders,
			DryRun:        body.DryRun,
			BoostCapacity: body.BoostCapacity,
			Trigger:       dispatch.TriggerManual,
		}
		if body.SpecificBrigadeID != nil {
			id, err := uuid.Parse(*body.SpecificBrigadeID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid brigade id"))
				return
			}
			input.SpecificBrigadeID = &id
		}

		result, err := svc.AutoAssign(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DispatchZones returns the pending backlog clustered by zone.
func DispatchZones(svc *reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusters, err := svc.ClusterOrdersByZone(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clusters)
	}
}

// DispatchStats returns the routing dashboard aggregate.
func DispatchStats(svc *reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.RoutingStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

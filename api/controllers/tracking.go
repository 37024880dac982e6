package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/api/responses"
	"github.com/ises-energia/scrc-backend/api/validators"
	"github.com/ises-energia/scrc-backend/internal/tracking"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type positionRequest struct {
	TechnicianID string  `json:"technicianId" validate:"required"`
	BrigadeID    *string `json:"brigadeId,omitempty"`
	Latitude     float64 `json:"latitude" validate:"latitude"`
	Longitude    float64 `json:"longitude" validate:"longitude"`
}

// ReportPosition records one technician GPS report.
func ReportPosition(tracker *tracking.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body positionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pos := tracking.Position{
			TechnicianID: body.TechnicianID,
			Latitude:     body.Latitude,
			Longitude:    body.Longitude,
		}
		if body.BrigadeID != nil {
			id, err := uuid.Parse(*body.BrigadeID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid brigade id"))
				return
			}
			pos.BrigadeID = &id
		}

		if err := tracker.Report(r.Context(), pos); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

// ListTechnicians returns last known technician positions with online status.
func ListTechnicians(tracker *tracking.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, tracker.Technicians(r.Context()))
	}
}

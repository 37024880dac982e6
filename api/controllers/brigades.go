package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/api/responses"
	"github.com/ises-energia/scrc-backend/internal/brigades"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

// ListBrigades returns every brigade with its derived daily workload.
func ListBrigades(svc *brigades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// GetBrigade returns one brigade view.
func GetBrigade(svc *brigades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "brigadeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid brigade id"))
			return
		}
		view, err := svc.Find(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/rigbuilderhq/rigbuilder-backend/api/responses"
	"github.com/rigbuilderhq/rigbuilder-backend/api/validators"
	auditsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
)

func ListAuditLogs(svc auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter auditsvc.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action, err := enums.ParseAuditAction(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
				return
			}
			filter.Action = &action
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAuditStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

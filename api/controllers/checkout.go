package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/api/middleware"
	"github.com/rigbuilderhq/rigbuilder-backend/api/responses"
	"github.com/rigbuilderhq/rigbuilder-backend/api/validators"
	checkoutsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/checkout"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
)

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, checkoutsvc.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		build, err := svc.Execute(r.Context(), middleware.UserIDFromContext(r.Context()), items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, build)
	}
}

package controllers

import (
	"net/http"

	"github.com/rigbuilderhq/rigbuilder-backend/api/middleware"
	"github.com/rigbuilderhq/rigbuilder-backend/api/responses"
	buildsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/builds"
	productsvc "github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
)

// BuilderView returns the active catalog grouped by category, plus any
// reorder the user staged from a past build.
func BuilderView(products productsvc.Service, builds buildsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		categories, err := products.BuilderView(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actor := buildsvc.Actor{
			ID:   middleware.UserIDFromContext(ctx),
			Role: middleware.RoleFromContext(ctx),
		}
		prefill, err := builds.Prefill(ctx, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"categories": categories,
			"prefill":    prefill,
		})
	}
}

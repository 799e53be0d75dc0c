package controllers

import (
	"net/http"

	"github.com/tomatolabs/bookstore-backend/api/responses"
	"github.com/tomatolabs/bookstore-backend/api/validators"
	"github.com/tomatolabs/bookstore-backend/internal/stock"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

type setStockRequest struct {
	Available *int `json:"available" validate:"required,min=0"`
	Reserved  *int `json:"reserved" validate:"required,min=0"`
}

type stockView struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
}

// AdminSetStock overwrites both stock counters for a product.
func AdminSetStock(svc stock.Admin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.UUIDFromURLParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Adjust(r.Context(), productID, *body.Available, *body.Reserved)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stockView{
			ProductID: record.ProductID.String(),
			Available: record.Available,
			Reserved:  record.Reserved,
		})
	}
}

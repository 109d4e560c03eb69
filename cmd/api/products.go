package main

import (
	"errors"
	"net/http"
	"strconv"

	"loft/internal/domain/catalog"
	"loft/internal/domain/pricing"

	"github.com/go-chi/chi/v5"
)

// ProductPayload is the admin create/update shape for catalog products.
type ProductPayload struct {
	Key              string         `json:"key" validate:"required,max=50"`
	Name             string         `json:"name" validate:"required,max=100"`
	Price            int            `json:"price" validate:"min=0"`
	Unit             string         `json:"unit" validate:"required,oneof=per_guest per_event per_hour"`
	Category         string         `json:"category" validate:"max=50"`
	PackageKey       *string        `json:"package_key"`
	DefaultInPackage bool           `json:"default_in_package"`
	Visible          bool           `json:"visible"`
	SortOrder        int            `json:"sort_order"`
	Slots            []pricing.Slot `json:"slots" validate:"dive,slot"`
}

func (p ProductPayload) toProduct() pricing.Product {
	return pricing.Product{
		Key:              p.Key,
		Name:             p.Name,
		Price:            p.Price,
		Unit:             pricing.Unit(p.Unit),
		Category:         p.Category,
		PackageKey:       p.PackageKey,
		DefaultInPackage: p.DefaultInPackage,
		Visible:          p.Visible,
		SortOrder:        p.SortOrder,
		Slots:            p.Slots,
	}
}

// ServicePayload is the admin create/update shape for service page entries.
type ServicePayload struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Visible     bool    `json:"visible"`
	SortOrder   int     `json:"sort_order"`
}

// ListProducts godoc
//
//	@Summary		List products
//	@Description	Lists visible catalog products in display order. Public.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}	pricing.Product
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := app.store.Catalog.ListProducts(r.Context(), true)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusOK, products); err != nil {
		app.internalServerError(w, r, err)
	}
}

// CreateProduct godoc
//
//	@Summary		Create a product
//	@Description	Adds a product to the catalog. Keys must be unique.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ProductPayload	true	"New product"
//	@Success		201		{object}	pricing.Product
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Duplicate product key"
//	@Security		ApiKeyAuth
//	@Router			/admin/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload ProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	product := payload.toProduct()
	if err := app.store.Catalog.CreateProduct(r.Context(), &product); err != nil {
		switch {
		case errors.Is(err, catalog.ErrDuplicateKey):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UpdateProduct godoc
//
//	@Summary		Update a product
//	@Description	Replaces a product's attributes. Bookings already priced keep their total; the change only affects new quotes.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int				true	"Product ID"
//	@Param			payload		body		ProductPayload	true	"Updated product"
//	@Success		200			{object}	pricing.Product
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Duplicate product key"
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID} [patch]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	product := payload.toProduct()
	product.ID = productID
	if err := app.store.Catalog.UpdateProduct(r.Context(), &product); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, catalog.ErrDuplicateKey):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, product); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeleteProduct godoc
//
//	@Summary		Delete a product
//	@Description	Removes a product from the catalog. Existing bookings keep their priced selections.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			productID	path	int	true	"Product ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Catalog.DeleteProduct(r.Context(), productID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderProducts godoc
//
//	@Summary		Reorder products
//	@Description	Sets the display order of the whole catalog to the given ID sequence
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	object	true	"Ordered product IDs"
//	@Success		204
//	@Failure		400	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/order [put]
func (app *application) reorderProductsHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrderedIDs []int64 `json:"ordered_ids" validate:"required,min=1"`
	}
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Catalog.ReorderProducts(r.Context(), payload.OrderedIDs); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRateCard godoc
//
//	@Summary		Get the rate card
//	@Description	Returns the current base rates and minimum total
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	pricing.RateCard
//	@Security		ApiKeyAuth
//	@Router			/admin/rate-card [get]
func (app *application) getRateCardHandler(w http.ResponseWriter, r *http.Request) {
	rates, err := app.store.Catalog.GetRateCard(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusOK, rates); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UpdateRateCard godoc
//
//	@Summary		Update the rate card
//	@Description	Replaces the base rates. Values must not be negative. Existing bookings keep the total they were priced at.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		pricing.RateCard	true	"New rates"
//	@Success		200		{object}	pricing.RateCard
//	@Failure		400		{object}	error	"Negative rate"
//	@Security		ApiKeyAuth
//	@Router			/admin/rate-card [put]
func (app *application) updateRateCardHandler(w http.ResponseWriter, r *http.Request) {
	var payload pricing.RateCard
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Catalog.UpdateRateCard(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNegativeRate):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, payload); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListServices godoc
//
//	@Summary		List services
//	@Description	Lists visible service page entries in display order. Public.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}	catalog.Service
//	@Router			/services [get]
func (app *application) listServicesHandler(w http.ResponseWriter, r *http.Request) {
	services, err := app.store.Catalog.ListServices(r.Context(), true)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusOK, services); err != nil {
		app.internalServerError(w, r, err)
	}
}

// CreateService godoc
//
//	@Summary		Create a service entry
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ServicePayload	true	"New service"
//	@Success		201		{object}	catalog.Service
//	@Failure		400		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/services [post]
func (app *application) createServiceHandler(w http.ResponseWriter, r *http.Request) {
	var payload ServicePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	service := catalog.Service{
		Title:       payload.Title,
		Description: payload.Description,
		Icon:        payload.Icon,
		Visible:     payload.Visible,
		SortOrder:   payload.SortOrder,
	}
	if err := app.store.Catalog.CreateService(r.Context(), &service); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, service); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UpdateService godoc
//
//	@Summary		Update a service entry
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			serviceID	path		int				true	"Service ID"
//	@Param			payload		body		ServicePayload	true	"Updated service"
//	@Success		200			{object}	catalog.Service
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/services/{serviceID} [patch]
func (app *application) updateServiceHandler(w http.ResponseWriter, r *http.Request) {
	serviceID, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload ServicePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	service := catalog.Service{
		ID:          serviceID,
		Title:       payload.Title,
		Description: payload.Description,
		Icon:        payload.Icon,
		Visible:     payload.Visible,
		SortOrder:   payload.SortOrder,
	}
	if err := app.store.Catalog.UpdateService(r.Context(), &service); err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, service); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeleteService godoc
//
//	@Summary		Delete a service entry
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			serviceID	path	int	true	"Service ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/services/{serviceID} [delete]
func (app *application) deleteServiceHandler(w http.ResponseWriter, r *http.Request) {
	serviceID, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Catalog.DeleteService(r.Context(), serviceID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

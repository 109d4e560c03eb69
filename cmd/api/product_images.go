package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loft/internal/domain/catalog"

	"github.com/go-chi/chi/v5"
)

// ListProductImages godoc
//
//	@Summary		List product images
//	@Description	Lists a product's gallery images in display order. Public.
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			productID	path	int	true	"Product ID"
//	@Success		200			{array}	catalog.ProductImage
//	@Failure		400			{object}	error
//	@Router			/products/{productID}/images [get]
func (app *application) listProductImagesHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid product ID"))
		return
	}

	images, err := app.store.Catalog.ListProductImages(r.Context(), productID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, images); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UploadProductImage godoc
//
//	@Summary		Upload a product image
//	@Description	Uploads an image to the product's gallery. JPEG, PNG and WebP up to 8MB.
//	@Tags			admin
//	@Accept			mpfd
//	@Produce		json
//	@Param			productID	path		int		true	"Product ID"
//	@Param			image		formData	file	true	"Image file"
//	@Param			sort_order	formData	int		false	"Display position"
//	@Success		201			{object}	catalog.ProductImage
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID}/images [post]
func (app *application) uploadProductImageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid product ID"))
		return
	}

	if _, err := app.store.Catalog.GetProductByID(ctx, productID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	const maxBytes = 8 * 1024 * 1024 // 8MB
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to parse form: %w", err))
		return
	}

	sortOrder := 0
	if s := r.FormValue("sort_order"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			sortOrder = v
		}
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("image file is required"))
		return
	}
	defer file.Close()

	mime, err := sniffMIME(file)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("sniff mime: %w", err))
		return
	}
	allowed := map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}
	if !allowed[mime] {
		app.badRequestResponse(w, r, fmt.Errorf("invalid image type: %s", mime))
		return
	}

	publicID := fmt.Sprintf("products/%d/%d", productID, time.Now().UnixNano())
	imageURL, err := app.uploadToCloudinaryWithID(file, publicID)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("failed to upload image: %w", err))
		return
	}

	img := &catalog.ProductImage{
		ProductID: productID,
		URL:       imageURL,
		PublicID:  publicID,
		SortOrder: sortOrder,
	}
	if err := app.store.Catalog.AddProductImage(ctx, img); err != nil {
		// cleanup failed upload
		go func(id string) { _ = app.deletePhotoFromCloudinary(id) }(publicID)
		app.internalServerError(w, r, fmt.Errorf("failed to save image: %w", err))
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, img); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeleteProductImage godoc
//
//	@Summary		Delete a product image
//	@Description	Removes an image from the product's gallery and from Cloudinary
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			productID	path	int	true	"Product ID"
//	@Param			imageID		path	int	true	"Image ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/products/{productID}/images/{imageID} [delete]
func (app *application) deleteProductImageHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid product ID"))
		return
	}
	imageID, err := strconv.ParseInt(chi.URLParam(r, "imageID"), 10, 64)
	if err != nil || imageID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid image ID"))
		return
	}

	img, err := app.store.Catalog.DeleteProductImage(r.Context(), productID, imageID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrImageNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	go func(id string) {
		if err := app.deletePhotoFromCloudinary(id); err != nil {
			app.logger.Errorw("failed to delete image from cloudinary", "public_id", id, "error", err)
		}
	}(img.PublicID)

	w.WriteHeader(http.StatusNoContent)
}

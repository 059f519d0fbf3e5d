package api

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/sun8-storefront/internal/admin"
	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// imageField is the multipart field carrying an uploaded image.
const imageField = "image"

type draftResponse struct {
	admin.Draft
	// FeaturesText is the comma separated form value.
	FeaturesText string `json:"featuresText"`
}

type saveResponse struct {
	Product product.Product `json:"product"`
	Created bool            `json:"created"`
}

func writeDraft(w http.ResponseWriter, r *http.Request, status int, d admin.Draft) {
	writeJSON(w, r, status, draftResponse{Draft: d, FeaturesText: admin.FormatFeatures(d.Features)})
}

func (h *Handler) newDraft(w http.ResponseWriter, r *http.Request) {
	writeDraft(w, r, http.StatusCreated, h.admin.NewDraft())
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	d, err := h.admin.Edit(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDraft(w, r, http.StatusOK, d)
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.admin.Draft()
	if !ok {
		h.writeError(w, r, admin.ErrNoDraft)
		return
	}
	writeDraft(w, r, http.StatusOK, d)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var patch admin.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.admin.Update(patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDraft(w, r, http.StatusOK, d)
}

func (h *Handler) cancelDraft(w http.ResponseWriter, _ *http.Request) {
	h.admin.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// addImage accepts a multipart form with an "image" file or the raw image
// as the request body.
func (h *Handler) addImage(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = body.Close() }()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		d, err := h.admin.AddImage(body)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeDraft(w, r, http.StatusOK, d)
		return
	}

	r.Body = body
	f, _, err := r.FormFile(imageField)
	if err != nil {
		h.writeError(w, r, &badRequestError{err: errors.Wrap(err, "read upload")})
		return
	}
	defer func() { _ = f.Close() }()

	d, err := h.admin.AddImage(f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDraft(w, r, http.StatusOK, d)
}

func (h *Handler) removeImage(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, r, &badRequestError{err: errors.Wrap(err, "image index")})
		return
	}
	d, err := h.admin.RemoveImage(i)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDraft(w, r, http.StatusOK, d)
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	p, created, err := h.admin.Save(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, saveResponse{Product: p, Created: created})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.admin.Delete(r.Context(), chi.URLParam(r, "id")) {
		h.writeError(w, r, product.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

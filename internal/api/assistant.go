package api

import (
	"net/http"
	"strconv"

	"github.com/xenking/sun8-storefront/internal/concierge"
	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/studio"
)

type messagesResponse struct {
	Messages []concierge.Rendered `json:"messages"`
	Pending  bool                 `json:"pending"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type sendResponse struct {
	Reply    concierge.Message    `json:"reply"`
	Messages []concierge.Rendered `json:"messages"`
}

func (h *Handler) getMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, messagesResponse{
		Messages: h.concierge.Render(),
		Pending:  h.concierge.Pending(),
	})
}

// sendMessage waits for the model reply. Remote failures are returned as
// flagged replies with status 200.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.concierge.Send(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sendResponse{Reply: reply, Messages: h.concierge.Render()})
}

type credentialRequest struct {
	Key string `json:"key"`
}

type credentialResponse struct {
	Selected bool   `json:"selected"`
	Message  string `json:"message,omitempty"`
}

func (h *Handler) getCredential(w http.ResponseWriter, r *http.Request) {
	resp := credentialResponse{Selected: h.studio.HasCredential()}
	if !resp.Selected {
		resp.Message = h.shop.T("veo.apiKeyRequired")
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) selectCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.studio.SelectCredential(req.Key); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.getCredential(w, r)
}

type jobRequest struct {
	// Image is base64 encoded.
	Image       []byte            `json:"image"`
	Prompt      string            `json:"prompt"`
	AspectRatio genai.AspectRatio `json:"aspectRatio"`
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = genai.Landscape
	}
	snap, err := h.studio.Start(h.shop.Language(), studio.Request{
		Image:       req.Image,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, snap)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.studio.Job(h.shop.Language())
	if !ok {
		h.writeError(w, r, studio.ErrNoJob)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// cancelJob stops a running generation or dismisses a finished one.
func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	if h.studio.Cancel() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.studio.Dismiss(); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) downloadVideo(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.studio.Video(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="sun8-studio.mp4"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package web

import (
	"net/http"
)

func (a *API) PresignUpload(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req struct {
		ContentType string `json:"contentType"`
		Size        int64  `json:"size"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}

	up, err := a.files.PresignUpload(r.Context(), claims.UserID, req.ContentType, req.Size)
	if err != nil {
		a.log.Warn(r.Context(), "upload rejected", "error", err)
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (a *API) PresignDownload(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	u, err := a.files.PresignDownload(r.Context(), claims.UserID, key)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

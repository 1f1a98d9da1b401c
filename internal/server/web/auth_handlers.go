package web

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

type loginRequest struct {
	Username    *string `json:"username"`
	RedirectURL *string `json:"redirectUrl"`
}

type loginResponse struct {
	Status      services.LoginStatus `json:"status"`
	RedirectURL *string              `json:"redirectUrl,omitempty"`
}

const maxFormBody = 16 << 10

// Login accepts either a JSON body or an HTML form.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)

	var req loginRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, loginResponse{Status: services.LoginInvalidData})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, loginResponse{Status: services.LoginInvalidData})
			return
		}
		if r.PostForm.Has("username") {
			v := r.PostForm.Get("username")
			req.Username = &v
		}
		if r.PostForm.Has("redirectUrl") {
			v := r.PostForm.Get("redirectUrl")
			req.RedirectURL = &v
		}
	}

	if req.Username == nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Status: services.LoginInvalidData})
		return
	}

	res := a.auth.Login(r.Context(), services.LoginForm{Username: *req.Username, RedirectURL: req.RedirectURL})
	switch res.Status {
	case services.LoginSuccess:
		a.writeSessionCookie(w, r, res.Token, res.Session.Expires)
		writeJSON(w, http.StatusOK, loginResponse{Status: res.Status, RedirectURL: res.RedirectURL})
	case services.LoginInvalidData:
		writeJSON(w, http.StatusBadRequest, loginResponse{Status: res.Status})
	default:
		writeJSON(w, http.StatusUnauthorized, loginResponse{Status: services.LoginFailed})
	}
}

// GetSession returns the session view, or null when signed out.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, auth.Project(claims))
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Guest sends visitors to the login page, keeping where they wanted to go.
func (a *API) Guest(w http.ResponseWriter, r *http.Request) {
	redirectURL := r.URL.Query().Get("redirectUrl")
	if !r.URL.Query().Has("redirectUrl") {
		redirectURL = "/login"
	}
	http.Redirect(w, r, "/login?redirectUrl="+url.QueryEscape(redirectURL), http.StatusFound)
}

package httpapi

import (
	"net/http"

	goCatalog "github.com/MrEthical07/goCatalog"
)

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerResponse struct {
	Message  string   `json:"message"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UsernameOrEmail == "" || req.Password == "" {
		writeStatus(w, http.StatusBadRequest, "usernameOrEmail and password are required", nil)
		return
	}

	res, err := h.engine.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req goCatalog.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		Message:  "user registered",
		Username: id.Subject,
		Roles:    id.Roles,
	})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		writeStatus(w, http.StatusBadRequest, "refreshToken is required", nil)
		return
	}

	res, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "catalogd",
		"version": h.version,
		"endpoints": map[string]string{
			"auth":     "/auth",
			"products": "/products",
			"health":   "/health",
		},
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

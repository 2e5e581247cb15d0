package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlasherbaltea-design/otg-track-99/internal/auth"
	"github.com/atlasherbaltea-design/otg-track-99/internal/imaging"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type updateUserRequest struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		serverError(w, r, "failed to list users", err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Permissions == nil {
		req.Permissions = model.DefaultPermissions
	}

	existing, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		serverError(w, r, "failed to create user", err)
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(w, r, "failed to hash password", err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, req.Name, hash, req.Role, req.Permissions)
	if err != nil {
		serverError(w, r, "failed to create user", err)
		return
	}

	slog.Info("user created", "user", GetClaims(r.Context()).Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to get user", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to update user", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if user.Role == model.RoleAdmin && req.Role != model.RoleAdmin {
		if last, err := h.lastAdmin(r); err != nil {
			serverError(w, r, "failed to update user", err)
			return
		} else if last {
			jsonError(w, http.StatusConflict, "cannot demote the last admin")
			return
		}
	}

	if err := store.UpdateUser(r.Context(), h.DB, id, strings.TrimSpace(req.Name), req.Role, req.Permissions); err != nil {
		serverError(w, r, "failed to update user", err)
		return
	}

	updated, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to update user", err)
		return
	}
	slog.Info("user updated", "user", GetClaims(r.Context()).Username, "target_user", updated.Username, "role", updated.Role)
	jsonResponse(w, http.StatusOK, updated)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to reset password", err)
		return
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		serverError(w, r, "failed to hash password", err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
		serverError(w, r, "failed to reset password", err)
		return
	}

	slog.Info("user password reset", "user", GetClaims(r.Context()).Username, "target_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to delete user", err)
		return
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if target.Role == model.RoleAdmin {
		if last, err := h.lastAdmin(r); err != nil {
			serverError(w, r, "failed to delete user", err)
			return
		} else if last {
			jsonError(w, http.StatusConflict, "cannot delete the last admin")
			return
		}
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		serverError(w, r, "failed to delete user", err)
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *UsersHandler) lastAdmin(r *http.Request) (bool, error) {
	n, err := store.CountAdmins(r.Context(), h.DB)
	return n <= 1, err
}

// UploadPhoto handles PUT /api/users/{id}/photo. The image is taken from
// the "photo" field of a multipart form or from the raw request body.
func (h *UsersHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to upload photo", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	body := r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var file multipart.File
		file, _, err = r.FormFile("photo")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "missing photo field")
			return
		}
		defer file.Close()
		body = file
	}

	data, err := imaging.NormalizePhoto(body)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, "invalid image")
		return
	}

	if err := store.SetUserPhoto(r.Context(), h.DB, id, data, imaging.MIME); err != nil {
		serverError(w, r, "failed to store photo", err)
		return
	}

	slog.Info("user photo updated", "user", GetClaims(r.Context()).Username, "target_user", user.Username, "bytes", len(data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo updated"})
}

// GetPhoto handles GET /api/users/{id}/photo.
func (h *UsersHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	data, mimeType, err := store.GetUserPhoto(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to get photo", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

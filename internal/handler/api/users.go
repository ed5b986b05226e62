package api

import (
	"net/http"

	"github.com/olegiv/wingsite/internal/middleware"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/service"
	"github.com/olegiv/wingsite/internal/util"
)

// ListOrGetUsers returns one user when an id is given and all users otherwise.
func (h *Handler) ListOrGetUsers(w http.ResponseWriter, r *http.Request) {
	id, ok, err := idParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	if ok {
		user, err := h.Users.Get(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		WriteSuccess(w, user)
		return
	}

	users, err := h.Users.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	WriteSuccess(w, users)
}

// CreateUser creates a user. Role defaults to editor.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.Users.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logUserEvent(r, "user created", user)
	WriteCreated(w, user)
}

// UpdateUser applies a partial update to the user named by id.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok, err := idParam(r)
	if err != nil || !ok {
		WriteBadRequest(w, "User ID is required", nil)
		return
	}

	var in service.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.Users.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logUserEvent(r, "user updated", user)
	WriteSuccess(w, user)
}

// DeleteUser removes the user named by id. Deleting yourself or the last
// admin is refused.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok, err := idParam(r)
	if err != nil || !ok {
		WriteBadRequest(w, "User ID is required", nil)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if err := h.Users.Delete(r.Context(), claims.UserID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if h.Events != nil {
		_ = h.Events.LogUserEvent(r.Context(), model.EventLevelInfo, "user deleted", actor(r), util.ClientIP(r),
			map[string]any{"deleted_id": id})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logUserEvent(r *http.Request, msg string, u model.User) {
	if h.Events == nil {
		return
	}
	_ = h.Events.LogUserEvent(r.Context(), model.EventLevelInfo, msg, actor(r), util.ClientIP(r),
		map[string]any{"target_id": u.ID, "email": u.Email, "role": u.Role})
}

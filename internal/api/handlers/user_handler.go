package handlers

import (
	"log/slog"
	"net/http"

	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(userService *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         logger,
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	users, err := h.userService.ListUsers(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

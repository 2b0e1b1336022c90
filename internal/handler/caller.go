package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/yourdudeken/eventtik/internal/middleware"
	"github.com/yourdudeken/eventtik/internal/repository"
	"github.com/yourdudeken/eventtik/internal/service"
)

// callers resolves the authenticated user and their current role.
type callers struct {
	roles repository.RoleRepository
}

func (r callers) resolve(c echo.Context) (service.Caller, error) {
	userID := middleware.UserID(c)
	if userID == "" {
		return service.Caller{}, nil
	}
	role, err := r.roles.FindRole(c.Request().Context(), userID)
	if err != nil {
		return service.Caller{}, err
	}
	return service.Caller{UserID: userID, Role: role}, nil
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/service"
)

// UsersHandler exposes staff account and venue administration.
type UsersHandler struct {
	users  *service.UserService
	venues *service.VenueService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, venues *service.VenueService) *UsersHandler {
	return &UsersHandler{users: users, venues: venues}
}

// CreateUser handles POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateUser(c.UserContext(), actor, req.Name, req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListUsers handles GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filters := service.UserListFilters{}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.Role(roleStr)
		filters.Role = &role
	}
	filters.Limit, filters.Offset = parsePage(c, 50)

	users, err := h.users.ListUsers(c.UserContext(), actor, filters)
	if err != nil {
		return err
	}
	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpdateRole handles PATCH /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// CreateVenue handles POST /venues.
func (h *UsersHandler) CreateVenue(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateVenueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	venue, err := h.venues.CreateVenue(c.UserContext(), actor, req.Name, req.Address)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": venueResponse(venue)})
}

// ListVenues handles GET /venues.
func (h *UsersHandler) ListVenues(c *fiber.Ctx) error {
	venues, err := h.venues.ListVenues(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.VenueResponse, 0, len(venues))
	for i := range venues {
		resp = append(resp, venueResponse(&venues[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

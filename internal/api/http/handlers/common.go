package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/auth"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/policy"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (policy.Actor, error) {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return policy.Actor{}, err
	}
	return principal.Actor(), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// parsePage returns limit and offset from either limit/offset or page/pageSize.
func parsePage(c *fiber.Ctx, defaultSize int) (int, int) {
	if limit := parseIntQuery(c, "limit", 0); limit > 0 {
		return limit, parseIntQuery(c, "offset", 0)
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "pageSize", defaultSize)
	return pageSize, (page - 1) * pageSize
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func optionalString(val string) *string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	return &val
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func venueResponse(venue *domain.Venue) dto.VenueResponse {
	return dto.VenueResponse{ID: venue.ID, Name: venue.Name, Address: venue.Address}
}

func eventResponse(event *domain.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:        event.ID,
		Name:      event.Name,
		VenueID:   event.VenueID,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		Timezone:  event.Timezone,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}
}

func assignmentResponse(a *domain.StaffAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{UserID: a.UserID, EventID: a.EventID, Role: a.Role, CreatedAt: a.CreatedAt}
}

func patientResponse(p *domain.Patient) dto.PatientResponse {
	return dto.PatientResponse{
		ID:        p.ID,
		EventID:   p.EventID,
		TriageTag: p.TriageTag,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func assessmentResponse(a *domain.Assessment) dto.AssessmentResponse {
	resp := dto.AssessmentResponse{
		PatientID:                 a.PatientID,
		Status:                    a.Status,
		HospitalName:              a.HospitalName,
		EMSUnit:                   a.EMSUnit,
		ChiefComplaint:            a.ChiefComplaint,
		Narrative:                 a.Narrative,
		PatientSignature:          a.PatientSignature,
		PatientSignatureTimestamp: a.PatientSignatureTimestamp,
		EMTSignature:              a.EMTSignature,
		EMTSignatureTimestamp:     a.EMTSignatureTimestamp,
		Version:                   a.Version,
		UpdatedAt:                 a.UpdatedAt,
		UpdatedBy:                 a.UpdatedBy,
	}
	if a.Disposition != domain.DispositionNone {
		d := a.Disposition
		resp.Disposition = &d
	}
	return resp
}

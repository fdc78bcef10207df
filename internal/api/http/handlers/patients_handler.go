package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/service"
)

// PatientsHandler exposes patients and their assessments within an event.
type PatientsHandler struct {
	patients    *service.PatientService
	assessments *service.AssessmentService
}

// NewPatientsHandler constructs handler.
func NewPatientsHandler(patients *service.PatientService, assessments *service.AssessmentService) *PatientsHandler {
	return &PatientsHandler{patients: patients, assessments: assessments}
}

// Create handles POST /events/:eventId/patients.
func (h *PatientsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreatePatientRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patient, assessment, err := h.patients.CreatePatient(c.UserContext(), actor, c.Params("eventId"), service.PatientCreateInput{
		TriageTag:      req.TriageTag,
		ChiefComplaint: req.ChiefComplaint,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PatientCreatedResponse{
		Patient:    patientResponse(patient),
		Assessment: assessmentResponse(assessment),
	}})
}

// List handles GET /events/:eventId/patients.
func (h *PatientsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter := service.PatientListFilter{}
	if tag := c.Query("triageTag"); tag != "" {
		t := domain.TriageTag(tag)
		filter.TriageTag = &t
	}
	filter.Limit, filter.Offset = parsePage(c, 50)

	page, err := h.patients.ListPatients(c.UserContext(), actor, c.Params("eventId"), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.PatientResponse, 0, len(page.Patients))
	for i := range page.Patients {
		resp = append(resp, patientResponse(&page.Patients[i]))
	}
	return c.JSON(fiber.Map{"data": resp, "meta": dto.PageMeta{NextOffset: page.NextOffset}})
}

// Get handles GET /events/:eventId/patients/:patientId.
func (h *PatientsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	patient, err := h.patients.GetPatient(c.UserContext(), actor, c.Params("eventId"), c.Params("patientId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": patientResponse(patient)})
}

// UpdateTriage handles PATCH /events/:eventId/patients/:patientId.
func (h *PatientsHandler) UpdateTriage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTriageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patient, err := h.patients.UpdateTriage(c.UserContext(), actor, c.Params("eventId"), c.Params("patientId"), req.TriageTag)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": patientResponse(patient)})
}

// Delete handles DELETE /events/:eventId/patients/:patientId.
func (h *PatientsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.patients.DeletePatient(c.UserContext(), actor, c.Params("eventId"), c.Params("patientId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetAssessment handles GET /events/:eventId/patients/:patientId/assessment.
func (h *PatientsHandler) GetAssessment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	assessment, err := h.assessments.GetAssessment(c.UserContext(), actor, c.Params("eventId"), c.Params("patientId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assessmentResponse(assessment)})
}

// UpdateAssessment handles PATCH /events/:eventId/patients/:patientId/assessment.
func (h *PatientsHandler) UpdateAssessment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAssessmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	assessment, err := h.assessments.UpdateAssessment(c.UserContext(), actor, c.Params("eventId"), c.Params("patientId"),
		service.AssessmentUpdateInput{Version: req.Version, Change: assessmentChange(req)})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assessmentResponse(assessment)})
}

func assessmentChange(req dto.UpdateAssessmentRequest) policy.AssessmentChange {
	change := policy.AssessmentChange{
		HospitalName:     req.HospitalName,
		EMSUnit:          req.EMSUnit,
		ChiefComplaint:   req.ChiefComplaint,
		Narrative:        req.Narrative,
		PatientSignature: req.PatientSignature,
		EMTSignature:     req.EMTSignature,
	}
	if req.Status != nil {
		status := domain.AssessmentStatus(*req.Status)
		change.Status = &status
	}
	if req.Disposition != nil {
		disposition := domain.Disposition(*req.Disposition)
		change.Disposition = &disposition
	}
	return change
}

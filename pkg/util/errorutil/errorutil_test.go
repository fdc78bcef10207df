package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/epcr-service/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"no rows", fmt.Errorf("get patient: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"version conflict", fmt.Errorf("update: %w", domain.ErrVersionConflict), "CONFLICT", http.StatusConflict},
		{"locked passes through", NewRecordLocked(), "RECORD_LOCKED", http.StatusLocked},
		{"fiber route miss", fiber.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"fiber bad body", fiber.NewError(http.StatusUnprocessableEntity, "bad body"), "VALIDATION_FAILED", http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestNewMissingRequiredField(t *testing.T) {
	de := ToDomainError(NewMissingRequiredField("hospitalName", []string{"hospitalName", "emsUnit"}))
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "hospitalName", de.Details["field"])
	assert.Equal(t, []string{"hospitalName", "emsUnit"}, de.Details["missing"])

	de = ToDomainError(NewMissingRequiredField("emtSignature", nil))
	assert.Equal(t, []string{"emtSignature"}, de.Details["missing"])
}

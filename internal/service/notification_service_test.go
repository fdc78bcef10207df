package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/epcr-service/internal/config"
)

func TestSendSignInCodeDelivery(t *testing.T) {
	t.Run("webhook receives the code", func(t *testing.T) {
		received := make(chan signInCodeMessage, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var msg signInCodeMessage
			_ = json.NewDecoder(r.Body).Decode(&msg)
			received <- msg
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		n := NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
		require.NoError(t, n.SendSignInCode(context.Background(), "medic@example.com", "123456"))

		msg := <-received
		assert.Equal(t, "sign_in_code", msg.Type)
		assert.Equal(t, "medic@example.com", msg.Email)
		assert.Equal(t, "123456", msg.Code)
	})

	t.Run("webhook failure is logged not returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		core, logs := observer.New(zapcore.DebugLevel)
		n := NewNotificationService(nil, zap.New(core), config.NotificationConfig{WebhookURL: srv.URL})
		require.NoError(t, n.SendSignInCode(context.Background(), "medic@example.com", "123456"))
		assert.Equal(t, 1, logs.FilterMessage("sign-in code webhook failed").Len())
	})

	t.Run("development logs the code", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		n := NewNotificationService(nil, zap.New(core), config.NotificationConfig{LogSignInCodes: true})
		require.NoError(t, n.SendSignInCode(context.Background(), "medic@example.com", "654321"))

		entries := logs.FilterMessage("SignInCodeIssued").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "654321", entries[0].ContextMap()["code"])
	})

	t.Run("no channel warns without leaking the code", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		n := NewNotificationService(nil, zap.New(core), config.NotificationConfig{})
		require.NoError(t, n.SendSignInCode(context.Background(), "medic@example.com", "111111"))

		assert.Equal(t, 1, logs.FilterMessage("sign-in code not delivered, no channel configured").Len())
		for _, e := range logs.All() {
			assert.NotContains(t, e.ContextMap(), "code")
		}
	})
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWebhookDispatcher_Send verifies the JSON body and error handling on
// non-2xx responses.
func TestWebhookDispatcher_Send(t *testing.T) {
	t.Parallel()

	var received Notification

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	dispatcher := NewWebhookDispatcher(server.URL)

	notification := Notification{
		GroupID:       "g1",
		Title:         "Safety check",
		Body:          "Is everyone okay?",
		Payload:       map[string]string{"checkId": "c1"},
		ExcludeUserID: "u1",
	}

	require.NoError(t, dispatcher.Send(context.Background(), notification))
	require.Equal(t, notification, received)
}

// TestWebhookDispatcher_SendFailure ensures a non-2xx response surfaces as
// an error.
func TestWebhookDispatcher_SendFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	dispatcher := NewWebhookDispatcher(server.URL)

	err := dispatcher.Send(context.Background(), Notification{GroupID: "g1"})
	require.Error(t, err)
}

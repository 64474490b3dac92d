package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
)

type fakeSyncer struct {
	gotCheckpoint uint64
	matched       []models.MailMessage
	err           error
	calls         int
}

func (f *fakeSyncer) Sync(newCheckpoint uint64) ([]models.MailMessage, error) {
	f.calls++
	f.gotCheckpoint = newCheckpoint
	return f.matched, f.err
}

type fakeRunner struct {
	count int
	err   error
}

func (f *fakeRunner) Run() (int, error) { return f.count, f.err }

type fakeGateway struct {
	sent []string
}

func (f *fakeGateway) Send(chatID int64, text string, controls gateway.Controls) (int, error) {
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakeGateway) Edit(int64, int, string, gateway.Controls) error   { return nil }
func (f *fakeGateway) AcknowledgeInteraction(string, string, bool) error { return nil }

func newTestServer(syncer Syncer, runner DispatchRunner, gw *fakeGateway) *Server {
	if gw == nil {
		gw = &fakeGateway{}
	}
	return New(syncer, runner, gw, 42, "Asia/Singapore", slog.New(slog.DiscardHandler))
}

func pushBody(t *testing.T, emailAddress string, historyID uint64) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]any{
		"emailAddress": emailAddress,
		"historyId":    historyID,
	})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"message": map[string]string{
			"data": base64.StdEncoding.EncodeToString(inner),
		},
	})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeSyncer{}, &fakeRunner{}, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Asia/Singapore")
}

func TestGmailPushRunsSyncAndSendsCards(t *testing.T) {
	syncer := &fakeSyncer{matched: []models.MailMessage{
		{ID: "m1", Subject: "Invoice", Sender: "alice@example.com"},
	}}
	gw := &fakeGateway{}
	srv := newTestServer(syncer, &fakeRunner{}, gw)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/gmail/push",
		bytes.NewReader(pushBody(t, "me@example.com", 135)))
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(135), syncer.gotCheckpoint)
	require.Len(t, gw.sent, 1)
	assert.Contains(t, gw.sent[0], "Invoice")
}

func TestGmailPushWithoutBodyIsNoop(t *testing.T) {
	syncer := &fakeSyncer{}
	srv := newTestServer(syncer, &fakeRunner{}, nil)

	for _, body := range []string{"", "{}", `{"message":{}}`, "not json"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/gmail/push", bytes.NewBufferString(body))
		srv.Router().ServeHTTP(w, req)

		// Always accepted so Pub/Sub never retries.
		assert.Equal(t, http.StatusOK, w.Code, "body %q", body)
	}
	assert.Zero(t, syncer.calls)
}

func TestGmailPushSyncFailureStillAccepted(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("provider down")}
	srv := newTestServer(syncer, &fakeRunner{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/gmail/push",
		bytes.NewReader(pushBody(t, "me@example.com", 135)))
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckRemindersReturnsCount(t *testing.T) {
	srv := newTestServer(&fakeSyncer{}, &fakeRunner{count: 3}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-reminders", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dispatched": 3}`, w.Body.String())
}

func TestCheckRemindersNotConfigured(t *testing.T) {
	srv := newTestServer(&fakeSyncer{}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-reminders", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckRemindersStoreFailure(t *testing.T) {
	srv := newTestServer(&fakeSyncer{}, &fakeRunner{err: errors.New("store down")}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-reminders", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

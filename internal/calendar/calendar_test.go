package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/nhle/taskpilot/internal/model"
)

type recordedRequest struct {
	method string
	path   string
	event  calendar.Event
}

type fakeAPI struct {
	mu        sync.Mutex
	requests  []recordedRequest
	deleteErr int
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := recordedRequest{method: r.Method, path: r.URL.Path}
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch) {
		_ = json.NewDecoder(r.Body).Decode(&rec.event)
	}
	f.requests = append(f.requests, rec)

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: "evt-123"})
	case http.MethodPatch:
		parts := strings.Split(r.URL.Path, "/")
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: parts[len(parts)-1]})
	case http.MethodDelete:
		if f.deleteErr != 0 {
			w.WriteHeader(f.deleteErr)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"rejected"}}`, f.deleteErr)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestCalendar(t *testing.T) (*GoogleCalendar, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	server := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(server.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return NewGoogleCalendar(srv, "", nil), api
}

func TestCreateEvent(t *testing.T) {
	cal, api := newTestCalendar(t)
	deadline := time.Date(2026, 5, 5, 17, 0, 0, 0, time.UTC)

	ref, err := cal.CreateEvent(context.Background(), model.Task{
		ID:          "task-1",
		Title:       "Write report",
		Description: "Q2",
		Deadline:    &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-123", ref)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.True(t, strings.HasSuffix(req.path, "/calendars/primary/events"), req.path)

	ev := req.event
	assert.Equal(t, "Write report", ev.Summary)
	assert.Equal(t, "2026-05-05T17:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "2026-05-05T18:00:00Z", ev.End.DateTime)
	require.NotNil(t, ev.Reminders)
	assert.False(t, ev.Reminders.UseDefault)
	require.Len(t, ev.Reminders.Overrides, 1)
	assert.Equal(t, int64(30), ev.Reminders.Overrides[0].Minutes)
	assert.Equal(t, "popup", ev.Reminders.Overrides[0].Method)
	assert.Equal(t, "task-1", ev.ExtendedProperties.Private[TaskIDProperty])
}

func TestCreateEvent_NoDeadline(t *testing.T) {
	cal, api := newTestCalendar(t)

	ref, err := cal.CreateEvent(context.Background(), model.Task{ID: "t", Title: "Loose"})
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Empty(t, api.requests)
}

func TestUpdateEvent(t *testing.T) {
	cal, api := newTestCalendar(t)
	deadline := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	err := cal.UpdateEvent(context.Background(), "evt-9", model.Task{
		ID: "t", Title: "Moved", Deadline: &deadline,
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	assert.Equal(t, http.MethodPatch, api.requests[0].method)
	assert.True(t, strings.HasSuffix(api.requests[0].path, "/events/evt-9"))
	assert.Equal(t, "2026-06-01T10:00:00Z", api.requests[0].event.End.DateTime)

	assert.Error(t, cal.UpdateEvent(context.Background(), "evt-9", model.Task{ID: "t"}))
}

func TestDeleteEvent(t *testing.T) {
	cal, api := newTestCalendar(t)

	require.NoError(t, cal.DeleteEvent(context.Background(), "evt-1"))
	assert.Equal(t, http.MethodDelete, api.requests[0].method)

	api.deleteErr = http.StatusNotFound
	assert.NoError(t, cal.DeleteEvent(context.Background(), "evt-gone"))

	api.deleteErr = http.StatusForbidden
	assert.Error(t, cal.DeleteEvent(context.Background(), "evt-locked"))
}

func TestDisabled(t *testing.T) {
	deadline := time.Now()
	ref, err := Disabled{}.CreateEvent(context.Background(), model.Task{Deadline: &deadline})
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, saveToken(path, want))

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)

	_, err = tokenFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

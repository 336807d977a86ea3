package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"campusportal/internal/attendance"
	"campusportal/internal/notify"
)

type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records []attendance.Record
}

func (f *fakeAttendanceRepo) Insert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAttendanceRepo) ListBetween(_ context.Context, from, to time.Time) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]attendance.Record(nil), f.records...), nil
}

func (f *fakeAttendanceRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type testChannel struct {
	server *httptest.Server
	repo   *fakeAttendanceRepo
}

func newTestChannel(t *testing.T, captureToken string) *testChannel {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	q := notify.NewInMemory(64)
	hub := notify.NewHub()
	go func() { _ = notify.Dispatch(ctx, q, hub) }()

	events := notify.NewBroadcaster(q)
	repo := &fakeAttendanceRepo{}
	att := attendance.NewService(repo, events)

	r := gin.New()
	r.GET("/ws", NewHandler(hub, att, events, captureToken).Serve)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testChannel{server: server, repo: repo}
}

func (tc *testChannel) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(tc.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func TestAttendanceMessageRecordsAndBroadcasts(t *testing.T) {
	tc := newTestChannel(t, "")
	conn := tc.dial(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := wsjson.Write(ctx, conn, map[string]any{
		"type": "attendance",
		"data": map[string]string{"rollNumber": "21CS01", "name": "Asha"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	// The same connection receives the broadcast attendanceUpdate.
	var evt notify.Event
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Type != notify.TypeAttendanceUpdate {
		t.Errorf("event type = %q, want attendanceUpdate", evt.Type)
	}
	if tc.repo.count() != 1 {
		t.Errorf("records = %d, want 1", tc.repo.count())
	}
}

func TestUnknownFaceBroadcastsNotification(t *testing.T) {
	tc := newTestChannel(t, "")
	conn := tc.dial(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "unknownFace"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var evt notify.Event
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Type != notify.TypeNotification {
		t.Errorf("event type = %q, want notification", evt.Type)
	}
}

func TestCaptureTokenGatesIngest(t *testing.T) {
	tc := newTestChannel(t, "capture-secret")

	// Without the token the message is dropped.
	unverified := tc.dial(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := wsjson.Write(ctx, unverified, map[string]any{
		"type": "attendance",
		"data": map[string]string{"rollNumber": "21CS01", "name": "Asha"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if tc.repo.count() != 0 {
		t.Fatalf("records = %d, want 0 without capture token", tc.repo.count())
	}

	// With the token the record lands.
	verified := tc.dial(t, "?capture_token=capture-secret")
	err = wsjson.Write(ctx, verified, map[string]any{
		"type": "attendance",
		"data": map[string]string{"rollNumber": "21CS01", "name": "Asha"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var evt notify.Event
	if err := wsjson.Read(ctx, verified, &evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if tc.repo.count() != 1 {
		t.Errorf("records = %d, want 1", tc.repo.count())
	}
}

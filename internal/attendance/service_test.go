package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusportal/internal/notify"
)

type fakeRepo struct {
	records []Record
}

func (f *fakeRepo) Insert(_ context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = "rec"
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRepo) ListBetween(_ context.Context, from, to time.Time) ([]Record, error) {
	var res []Record
	for _, rec := range f.records {
		if !rec.RecordedAt.Before(from) && rec.RecordedAt.Before(to) {
			res = append(res, rec)
		}
	}
	return res, nil
}

func TestRecordAppendsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	q := notify.NewInMemory(8)
	events, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	svc := NewService(&fakeRepo{}, notify.NewBroadcaster(q))

	rec, err := svc.Record(ctx, "21CS01", "Asha")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.RecordedAt.IsZero() {
		t.Error("record must carry a server timestamp")
	}

	select {
	case evt := <-events:
		if evt.Type != notify.TypeAttendanceUpdate {
			t.Errorf("event type = %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no attendanceUpdate broadcast")
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	svc := NewService(&fakeRepo{}, notify.NewBroadcaster(notify.NewInMemory(8)))
	if _, err := svc.Record(context.Background(), "", "Asha"); !errors.Is(err, ErrMissingFields) {
		t.Errorf("err = %v, want ErrMissingFields", err)
	}
	if _, err := svc.Record(context.Background(), "21CS01", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("err = %v, want ErrMissingFields", err)
	}
}

func TestTodaysRecordsWindow(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := NewService(repo, notify.NewBroadcaster(notify.NewInMemory(8)))

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	if _, err := svc.Record(ctx, "21CS01", "Asha"); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := svc.TodaysRecords(ctx)
	if err != nil {
		t.Fatalf("todays records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("same-day records = %d, want 1", len(records))
	}

	// The next day the record no longer shows up.
	svc.now = func() time.Time { return now.AddDate(0, 0, 1) }
	records, err = svc.TodaysRecords(ctx)
	if err != nil {
		t.Fatalf("todays records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("next-day records = %d, want 0", len(records))
	}

	// A record from 23:59 yesterday stays out of today's window.
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	repo.records = append(repo.records, Record{
		ID: "old", RollNumber: "21CS02", Name: "Ravi",
		RecordedAt: startOfDay.Add(-time.Minute),
	})
	svc.now = func() time.Time { return now }
	records, err = svc.TodaysRecords(ctx)
	if err != nil {
		t.Fatalf("todays records: %v", err)
	}
	for _, rec := range records {
		if rec.ID == "old" {
			t.Error("yesterday's record leaked into today's window")
		}
	}
}

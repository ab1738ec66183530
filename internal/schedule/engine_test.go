package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeStore 纯内存实现，ownerOf 用来模拟车辆归属。
type fakeStore struct {
	schedules []Schedule
	ownerOf   map[string]string
}

func (f *fakeStore) Transact(_ context.Context, fn func(tx Store) error) error {
	// 内存实现没有真事务：先在副本上跑，成功才替换。
	backup := make([]Schedule, len(f.schedules))
	copy(backup, f.schedules)
	if err := fn(f); err != nil {
		f.schedules = backup
		return err
	}
	return nil
}

func (f *fakeStore) Create(_ context.Context, s *Schedule) error {
	f.schedules = append(f.schedules, *s)
	return nil
}

func (f *fakeStore) Save(_ context.Context, s *Schedule) error {
	for i := range f.schedules {
		if f.schedules[i].ID == s.ID {
			f.schedules[i] = *s
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*Schedule, error) {
	for i := range f.schedules {
		if f.schedules[i].ID == id {
			s := f.schedules[i]
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) CountOverlapping(_ context.Context, vehicleID string, start, end time.Time, excludeID string) (int64, error) {
	var n int64
	for i := range f.schedules {
		s := &f.schedules[i]
		if s.VehicleID != vehicleID || s.ID == excludeID {
			continue
		}
		if Overlaps(start, end, s.StartDate, s.EndDate) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListByVehicle(_ context.Context, vehicleID string) ([]Schedule, error) {
	var out []Schedule
	for i := range f.schedules {
		if f.schedules[i].VehicleID == vehicleID {
			out = append(out, f.schedules[i])
		}
	}
	return out, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]Schedule, error) {
	var out []Schedule
	for i := range f.schedules {
		if f.ownerOf[f.schedules[i].VehicleID] == ownerID {
			out = append(out, f.schedules[i])
		}
	}
	return out, nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	e := NewEngine(&fakeStore{})
	_, err := e.Create(context.Background(), CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-10"),
		EndDate:   mustDate(t, "2024-06-01"),
	})
	if !errors.Is(err, ErrInvertedRange) {
		t.Fatalf("expected ErrInvertedRange, got %v", err)
	}
}

func TestCreateSingleDayRangeAllowed(t *testing.T) {
	e := NewEngine(&fakeStore{})
	s, err := e.Create(context.Background(), CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-05"),
		EndDate:   mustDate(t, "2024-06-05"),
	})
	if err != nil {
		t.Fatalf("single-day range should be valid: %v", err)
	}
	if !s.StartDate.Equal(s.EndDate) {
		t.Fatalf("expected start == end, got %v / %v", s.StartDate, s.EndDate)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	cases := []struct {
		name       string
		start, end string
		conflict   bool
	}{
		{"contained", "2024-06-02", "2024-06-04", true},
		{"covering", "2024-05-30", "2024-06-10", true},
		{"left edge touch", "2024-05-28", "2024-06-01", true},
		{"right edge touch", "2024-06-05", "2024-06-08", true},
		{"day after", "2024-06-06", "2024-06-08", false},
		{"day before", "2024-05-28", "2024-05-31", false},
	}

	for _, tc := range cases {
		_, err := e.Create(ctx, CreateInput{
			VehicleID: "v-1",
			StartDate: mustDate(t, tc.start),
			EndDate:   mustDate(t, tc.end),
		})
		if tc.conflict && !errors.Is(err, ErrDateRangeConflict) {
			t.Errorf("%s: expected conflict, got %v", tc.name, err)
		}
		if !tc.conflict && err != nil {
			t.Errorf("%s: expected success, got %v", tc.name, err)
		}
	}
}

func TestCreateOtherVehicleUnaffected(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("booking v-1: %v", err)
	}
	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-2",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("same dates on another vehicle must pass: %v", err)
	}
}

func TestConflictLeavesNothingBehind(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	before := len(store.schedules)

	_, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-03"),
		EndDate:   mustDate(t, "2024-06-07"),
	})
	if !errors.Is(err, ErrDateRangeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.schedules) != before {
		t.Fatalf("rejected booking left %d rows, want %d", len(store.schedules), before)
	}
}

func TestUpdateExcludesSelf(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	s, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 原样保存：和自己重叠不算冲突
	if _, err := e.Update(ctx, s.ID, s.StartDate, s.EndDate); err != nil {
		t.Fatalf("re-saving unchanged dates must pass: %v", err)
	}

	// 向后平移一天，依旧只和自己重叠
	if _, err := e.Update(ctx, s.ID, mustDate(t, "2024-06-02"), mustDate(t, "2024-06-06")); err != nil {
		t.Fatalf("shifting within own range must pass: %v", err)
	}
}

func TestUpdateStillChecksOthers(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-10"),
		EndDate:   mustDate(t, "2024-06-12"),
	})
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}

	if _, err := e.Update(ctx, second.ID, mustDate(t, "2024-06-04"), mustDate(t, "2024-06-12")); !errors.Is(err, ErrDateRangeConflict) {
		t.Fatalf("expected conflict with first booking, got %v", err)
	}

	// 更新失败不得改动原记录
	got, err := e.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.StartDate.Equal(mustDate(t, "2024-06-10")) || !got.EndDate.Equal(mustDate(t, "2024-06-12")) {
		t.Fatalf("rejected update changed row: %v / %v", got.StartDate, got.EndDate)
	}

	if _, err := e.Update(ctx, second.ID, mustDate(t, "2024-06-06"), mustDate(t, "2024-06-08")); err != nil {
		t.Fatalf("non-overlapping move must pass: %v", err)
	}
}

func TestUpdateRejectsInvertedRange(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store)
	ctx := context.Background()

	s, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1",
		StartDate: mustDate(t, "2024-06-01"),
		EndDate:   mustDate(t, "2024-06-05"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.Update(ctx, s.ID, mustDate(t, "2024-06-10"), mustDate(t, "2024-06-01")); !errors.Is(err, ErrInvertedRange) {
		t.Fatalf("expected ErrInvertedRange, got %v", err)
	}
}

func TestListForOwner(t *testing.T) {
	store := &fakeStore{ownerOf: map[string]string{"v-1": "dealer-1", "v-2": "dealer-2"}}
	e := NewEngine(store)
	ctx := context.Background()

	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1", AccountID: "cust-1",
		StartDate: mustDate(t, "2024-06-01"), EndDate: mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.Create(ctx, CreateInput{
		VehicleID: "v-2", AccountID: "cust-1",
		StartDate: mustDate(t, "2024-06-01"), EndDate: mustDate(t, "2024-06-05"),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := e.ListForOwner(ctx, "dealer-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].VehicleID != "v-1" {
		t.Fatalf("expected only dealer-1 bookings, got %+v", got)
	}
}

// 整条链路：车商的一辆车被订走后，撞期的请求被拒，
// 平移后成功，车商视图里能看到两单。
func TestDealerBookingFlow(t *testing.T) {
	store := &fakeStore{ownerOf: map[string]string{"v-1": "dealer-1"}}
	e := NewEngine(store)
	ctx := context.Background()

	first, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1", AccountID: "cust-1",
		StartDate: mustDate(t, "2024-07-01"), EndDate: mustDate(t, "2024-07-07"),
	})
	if err != nil {
		t.Fatalf("first customer books: %v", err)
	}

	_, err = e.Create(ctx, CreateInput{
		VehicleID: "v-1", AccountID: "cust-2",
		StartDate: mustDate(t, "2024-07-05"), EndDate: mustDate(t, "2024-07-10"),
	})
	if !errors.Is(err, ErrDateRangeConflict) {
		t.Fatalf("second customer on overlapping dates: expected conflict, got %v", err)
	}

	second, err := e.Create(ctx, CreateInput{
		VehicleID: "v-1", AccountID: "cust-2",
		StartDate: mustDate(t, "2024-07-08"), EndDate: mustDate(t, "2024-07-10"),
	})
	if err != nil {
		t.Fatalf("second customer after moving dates: %v", err)
	}

	bookings, err := e.ListForOwner(ctx, "dealer-1")
	if err != nil {
		t.Fatalf("dealer bookings: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("dealer must see both bookings, got %d", len(bookings))
	}
	ids := map[string]bool{bookings[0].ID: true, bookings[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("dealer view missing a booking: %+v", bookings)
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	a1, a2 := mustDate(t, "2024-06-01"), mustDate(t, "2024-06-05")
	b1, b2 := mustDate(t, "2024-06-05"), mustDate(t, "2024-06-08")
	if !Overlaps(a1, a2, b1, b2) || !Overlaps(b1, b2, a1, a2) {
		t.Fatalf("shared boundary day must overlap both ways")
	}

	c1, c2 := mustDate(t, "2024-06-06"), mustDate(t, "2024-06-08")
	if Overlaps(a1, a2, c1, c2) || Overlaps(c1, c2, a1, a2) {
		t.Fatalf("adjacent ranges must not overlap")
	}
}

func TestParseDateNormalizesToUTCMidnight(t *testing.T) {
	d := mustDate(t, "2024-06-05")
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Fatalf("expected UTC midnight, got %v", d)
	}
	if _, err := ParseDate("05/06/2024"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

type stubAvailabilityStore struct {
	windows []models.AvailabilityWindow
	byDay   map[int][]models.AvailabilityWindow
	days    []int
}

func (s *stubAvailabilityStore) ReplaceForTeacher(_ context.Context, _ int64, _ []repository.AvailabilityWindowInput) error {
	return nil
}

func (s *stubAvailabilityStore) ListByTeacher(_ context.Context, _ int64) ([]models.AvailabilityWindow, error) {
	return s.windows, nil
}

func (s *stubAvailabilityStore) ListActiveByTeacher(_ context.Context, _ int64) ([]models.AvailabilityWindow, error) {
	return s.windows, nil
}

func (s *stubAvailabilityStore) ListActiveByWeekday(_ context.Context, _ int64, weekday int) ([]models.AvailabilityWindow, error) {
	return s.byDay[weekday], nil
}

func (s *stubAvailabilityStore) ListWeekdays(_ context.Context, _ int64) ([]int, error) {
	return s.days, nil
}

func TestReplaceAvailabilityRejectsInvalidWindows(t *testing.T) {
	service := NewAvailabilityService(nil, &stubAvailabilityStore{})

	cases := []struct {
		name   string
		window AvailabilityWindowInput
	}{
		{"weekday out of range", AvailabilityWindowInput{Weekday: 7, StartTime: "09:00", EndTime: "10:00", IsActive: true}},
		{"negative weekday", AvailabilityWindowInput{Weekday: -1, StartTime: "09:00", EndTime: "10:00", IsActive: true}},
		{"unparseable start", AvailabilityWindowInput{Weekday: 1, StartTime: "morning", EndTime: "10:00", IsActive: true}},
		{"start after end", AvailabilityWindowInput{Weekday: 1, StartTime: "11:00", EndTime: "10:00", IsActive: true}},
		{"zero-length window", AvailabilityWindowInput{Weekday: 1, StartTime: "10:00", EndTime: "10:00", IsActive: true}},
	}
	for _, tc := range cases {
		_, err := service.ReplaceAvailability(context.Background(), 5, []AvailabilityWindowInput{tc.window})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestListForTeacherRequiresPositiveID(t *testing.T) {
	service := NewAvailabilityService(nil, &stubAvailabilityStore{})

	if _, err := service.ListForTeacher(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWindowsForWeekdayValidatesRange(t *testing.T) {
	store := &stubAvailabilityStore{byDay: map[int][]models.AvailabilityWindow{
		3: {{TeacherID: 5, Weekday: 3, StartTime: "09:00:00", EndTime: "10:00:00", IsActive: true}},
	}}
	service := NewAvailabilityService(nil, store)

	if _, err := service.WindowsForWeekday(context.Background(), 5, 7); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for weekday 7, got %v", err)
	}

	windows, err := service.WindowsForWeekday(context.Background(), 5, 3)
	if err != nil {
		t.Fatalf("WindowsForWeekday: %v", err)
	}
	if len(windows) != 1 || windows[0].StartTime != "09:00:00" {
		t.Fatalf("unexpected windows: %+v", windows)
	}
}

func TestCommonSlotsForWeekdaysRejectsDuplicates(t *testing.T) {
	service := NewAvailabilityService(nil, &stubAvailabilityStore{})

	if _, err := service.CommonSlotsForWeekdays(context.Background(), 5, []int{1, 3, 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate weekday, got %v", err)
	}
	if _, err := service.CommonSlotsForWeekdays(context.Background(), 5, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty weekdays, got %v", err)
	}
}

func TestCommonSlotsForWeekdaysIntersectsWindows(t *testing.T) {
	store := &stubAvailabilityStore{windows: []models.AvailabilityWindow{
		{Weekday: 1, StartTime: "09:00:00", EndTime: "10:00:00", IsActive: true},
		{Weekday: 1, StartTime: "17:00:00", EndTime: "18:00:00", IsActive: true},
		{Weekday: 3, StartTime: "09:00:00", EndTime: "10:00:00", IsActive: true},
	}}
	service := NewAvailabilityService(nil, store)

	slots, err := service.CommonSlotsForWeekdays(context.Background(), 5, []int{1, 3})
	if err != nil {
		t.Fatalf("CommonSlotsForWeekdays: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 shared slot, got %d", len(slots))
	}
	if slots[0].Start != "09:00:00" || slots[0].End != "10:00:00" {
		t.Fatalf("unexpected slot: %+v", slots[0])
	}
}

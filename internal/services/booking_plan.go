package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

// Plan durations are fixed day counts; the walk below is inclusive of the
// boundary date, so a 7-day plan starting on a matching weekday yields both
// endpoints.
var planDurationDays = map[int]struct{}{
	7:  {},
	14: {},
	30: {},
	60: {},
	90: {},
}

func ValidPlanDuration(days int) bool {
	_, ok := planDurationDays[days]
	return ok
}

// NormalizeClock converts "H:MM", "HH:MM" or "HH:MM:SS" into a zero-padded
// HH:MM:SS string. Zero-padded clock strings compare lexicographically in the
// same order as the times they denote, which is what every overlap check here
// relies on.
func NormalizeClock(value string) (string, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return "", fmt.Errorf("invalid clock value %q", value)
	}
	if len(parts) == 2 {
		parts = append(parts, "0")
	}

	numbers := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return "", fmt.Errorf("invalid clock value %q", value)
		}
		numbers[i] = n
	}
	if numbers[0] < 0 || numbers[0] > 23 || numbers[1] < 0 || numbers[1] > 59 || numbers[2] < 0 || numbers[2] > 59 {
		return "", fmt.Errorf("invalid clock value %q", value)
	}
	return fmt.Sprintf("%02d:%02d:%02d", numbers[0], numbers[1], numbers[2]), nil
}

// SlotsOverlap applies the half-open interval test: [s1,e1) and [s2,e2)
// intersect iff s1 < e2 && s2 < e1. Exact adjacency is not an overlap.
func SlotsOverlap(a models.TimeSlot, b models.TimeSlot) bool {
	return a.Start < b.End && b.Start < a.End
}

// DateOnly truncates to a UTC calendar date, the canonical form for booking
// dates throughout the service.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ExpandPlanDates walks one calendar day at a time from start through
// start+durationDays inclusive and keeps the dates whose weekday is selected.
// The result is strictly ascending with no duplicates and deterministic for
// identical inputs.
func ExpandPlanDates(start time.Time, weekdays []int, durationDays int) []time.Time {
	selected := make(map[int]struct{}, len(weekdays))
	for _, weekday := range weekdays {
		selected[weekday] = struct{}{}
	}

	first := DateOnly(start)
	dates := make([]time.Time, 0, durationDays*len(selected)/7+1)
	for i := 0; i <= durationDays; i++ {
		day := first.AddDate(0, 0, i)
		if _, ok := selected[int(day.Weekday())]; ok {
			dates = append(dates, day)
		}
	}
	return dates
}

// PartitionDates splits the expanded list into the dates free to book and the
// dates found to conflict. Every input date lands in exactly one of the two.
func PartitionDates(dates []time.Time, conflicts []time.Time) (valid []time.Time, conflicted []time.Time) {
	conflictSet := make(map[string]struct{}, len(conflicts))
	for _, date := range conflicts {
		conflictSet[DateOnly(date).Format(time.DateOnly)] = struct{}{}
	}

	valid = make([]time.Time, 0, len(dates))
	conflicted = make([]time.Time, 0)
	for _, date := range dates {
		if _, ok := conflictSet[DateOnly(date).Format(time.DateOnly)]; ok {
			conflicted = append(conflicted, date)
		} else {
			valid = append(valid, date)
		}
	}
	return valid, conflicted
}

// ReconcilePlanDates picks the dates a create may persist. Without an
// expected set every expanded date must still be free, so any conflict aborts
// with the taken dates. With one, each expected date must come from the
// expansion; expected dates that turned conflicted since the student's
// preview abort with exactly those dates, never a silently smaller batch.
func ReconcilePlanDates(preview *models.BookingPreview, expected []time.Time) ([]time.Time, error) {
	if len(expected) == 0 {
		if len(preview.ConflictDates) > 0 {
			return nil, &SlotConflictError{Dates: preview.ConflictDates}
		}
		return preview.ValidDates, nil
	}

	validSet := make(map[string]time.Time, len(preview.ValidDates))
	for _, day := range preview.ValidDates {
		validSet[day.Format(time.DateOnly)] = day
	}
	conflictSet := make(map[string]struct{}, len(preview.ConflictDates))
	for _, day := range preview.ConflictDates {
		conflictSet[day.Format(time.DateOnly)] = struct{}{}
	}

	sessions := make([]time.Time, 0, len(expected))
	lost := make([]time.Time, 0)
	seen := make(map[string]struct{}, len(expected))
	for _, raw := range expected {
		key := DateOnly(raw).Format(time.DateOnly)
		if _, dup := seen[key]; dup {
			return nil, ErrInvalidInput
		}
		seen[key] = struct{}{}
		if day, ok := validSet[key]; ok {
			sessions = append(sessions, day)
			continue
		}
		if _, ok := conflictSet[key]; ok {
			lost = append(lost, DateOnly(raw))
			continue
		}
		return nil, ErrInvalidInput
	}
	if len(lost) > 0 {
		return nil, &SlotConflictError{Dates: lost}
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Before(sessions[j]) })
	return sessions, nil
}

// SessionPrice resolves the per-session price. A single attendee pays the
// individual rate. Two or more pay the group rate when one is set and
// positive; the group rate is flat per session no matter the headcount.
func SessionPrice(hourlyRate float64, groupRate *float64, attendees int) float64 {
	if attendees >= 2 && groupRate != nil && *groupRate > 0 {
		return *groupRate
	}
	return hourlyRate
}

// ClampAttendees bounds the requested headcount to [1, maxStudents].
func ClampAttendees(attendees int, maxStudents int) int {
	if maxStudents < 1 {
		maxStudents = 1
	}
	if attendees < 1 {
		return 1
	}
	if attendees > maxStudents {
		return maxStudents
	}
	return attendees
}

// CommonSlots intersects the teacher's windows across the selected weekdays:
// only (start,end) pairs present on every weekday survive, compared by string
// equality. An empty result means the weekday combination offers no bookable
// slot.
func CommonSlots(windows []models.AvailabilityWindow, weekdays []int) []models.TimeSlot {
	if len(weekdays) == 0 {
		return nil
	}

	slotsByWeekday := make(map[int]map[string]models.TimeSlot)
	for _, window := range windows {
		if !window.IsActive {
			continue
		}
		set, ok := slotsByWeekday[window.Weekday]
		if !ok {
			set = make(map[string]models.TimeSlot)
			slotsByWeekday[window.Weekday] = set
		}
		slot := models.TimeSlot{Start: window.StartTime, End: window.EndTime}
		set[slot.Start+"-"+slot.End] = slot
	}

	common := slotsByWeekday[weekdays[0]]
	if common == nil {
		return []models.TimeSlot{}
	}
	for _, weekday := range weekdays[1:] {
		set := slotsByWeekday[weekday]
		if set == nil {
			return []models.TimeSlot{}
		}
		for key := range common {
			if _, ok := set[key]; !ok {
				delete(common, key)
			}
		}
	}

	slots := make([]models.TimeSlot, 0, len(common))
	for _, slot := range common {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})
	return slots
}

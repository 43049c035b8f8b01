package schedule

import (
	"fmt"
	"time"

	"scanwise-server/internal/models"
)

// The lab runs the same six scan slots every day. Slots are stored as
// 24-hour HH:MM strings; the 12-hour labels are what the booking UI
// shows.
var slotCatalog = []string{"09:00", "10:30", "12:00", "14:00", "15:30", "17:00"}

// Calendar layout constants. One grid row is an hour; cards are laid
// out side by side when appointments share a slot.
const (
	BaseHour     = 9
	RowHeightPx  = 120
	CardWidthPx  = 260
	CardGapPx    = 10
	CardMarginPx = 10
)

// Slots returns the ordered catalog of bookable times.
func Slots() []string {
	out := make([]string, len(slotCatalog))
	copy(out, slotCatalog)
	return out
}

// SlotLabels returns the catalog formatted as 12-hour labels
// ("09:00 AM"), the form the booking UI displays.
func SlotLabels() []string {
	labels := make([]string, len(slotCatalog))
	for i, s := range slotCatalog {
		t, _ := time.Parse(models.TimeLayout, s)
		labels[i] = t.Format("03:04 PM")
	}
	return labels
}

// ParseSlotLabel converts a 12-hour label back to the stored HH:MM
// form. It accepts both "09:00 AM" and already-24-hour "09:00" input.
func ParseSlotLabel(label string) (string, error) {
	if t, err := time.Parse("03:04 PM", label); err == nil {
		return t.Format(models.TimeLayout), nil
	}
	if t, err := time.Parse(models.TimeLayout, label); err == nil {
		return t.Format(models.TimeLayout), nil
	}
	return "", fmt.Errorf("unrecognized time slot %q", label)
}

// IsValidSlot reports whether t is a member of the catalog.
func IsValidSlot(t string) bool {
	_, ok := SlotIndex(t)
	return ok
}

// SlotIndex returns the position of t in the catalog, used for
// chronological ordering.
func SlotIndex(t string) (int, bool) {
	for i, s := range slotCatalog {
		if s == t {
			return i, true
		}
	}
	return 0, false
}

// MinutesSinceMidnight parses an HH:MM value into minutes past
// midnight. Card positions are derived from this rather than the slot
// index, so an irregular catalog would still lay out correctly.
func MinutesSinceMidnight(t string) (int, error) {
	parsed, err := time.Parse(models.TimeLayout, t)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", t, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChecklistItem is one pre-trip to-do. Order in Metadata.Checklist is the
// display order.
type ChecklistItem struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

// ToggleChecklistItem flips the checked flag of the item with the given id.
// CheckedAt is stamped only on the false→true transition and cleared when the
// item is unchecked. The input slice is not modified.
func ToggleChecklistItem(items []ChecklistItem, id string, now time.Time) ([]ChecklistItem, error) {
	out := Metadata{Checklist: items}.Clone().Checklist
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if out[i].Checked {
			out[i].Checked = false
			out[i].CheckedAt = nil
		} else {
			at := now.UTC()
			out[i].Checked = true
			out[i].CheckedAt = &at
		}
		return out, nil
	}
	return nil, fmt.Errorf("checklist item %q: %w", id, ErrNotFound)
}

// AppendChecklistItem returns items with a new unchecked entry at the end.
func AppendChecklistItem(items []ChecklistItem, label string) ([]ChecklistItem, ChecklistItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ChecklistItem{}, fmt.Errorf("%w: checklist label is required", ErrValidation)
	}
	item := ChecklistItem{ID: uuid.NewString(), Label: label}
	out := append(Metadata{Checklist: items}.Clone().Checklist, item)
	return out, item, nil
}

// ChecklistProgress returns how many items are checked out of the total.
func ChecklistProgress(items []ChecklistItem) (done, total int) {
	for _, item := range items {
		if item.Checked {
			done++
		}
	}
	return done, len(items)
}

package timetrack

import (
	"strings"
	"time"
	"unicode/utf8"
)

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return invalid("description", "This field may not be blank.")
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return invalid("description", "Ensure this field has no more than 200 characters.")
	}
	return nil
}

// ValidateCreate checks a create request against the clock reading now.
func ValidateCreate(req CreateRequest, now time.Time) error {
	if err := validateDescription(req.Description); err != nil {
		return err
	}
	if req.StartTime.IsZero() {
		return invalid("start_time", "This field is required.")
	}
	if req.StartTime.After(now) {
		return invalid("start_time", "Start time cannot be in the future")
	}
	if req.EndTime != nil && !req.EndTime.After(req.StartTime) {
		return invalid("end_time", "End time must be after start time")
	}
	return nil
}

// ValidateUpdate checks req against the entry it would modify.
func ValidateUpdate(e *Entry, req UpdateRequest) error {
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.EndTime != nil && !req.EndTime.After(e.StartTime) {
		return invalid("end_time", "End time must be after start time")
	}
	return nil
}

package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/aretw0/moments/pkg/recurrence"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeInput trims surrounding whitespace from every string field and puts
// text in NFC form, so length limits count what the user sees.
// An empty repeat frequency defaults to RepeatNone.
func NormalizeInput(in Input) Input {
	in.Title = norm.NFC.String(strings.TrimSpace(in.Title))
	in.Description = norm.NFC.String(strings.TrimSpace(in.Description))
	in.Date = strings.TrimSpace(in.Date)
	in.RepeatFrequency = RepeatFrequency(strings.TrimSpace(string(in.RepeatFrequency)))
	if in.RepeatFrequency == "" {
		in.RepeatFrequency = RepeatNone
	}
	return in
}

// ValidateInput checks a submission payload and returns the first violation as
// a *ValidationError. Checks run in a fixed order: title presence, title
// length, description length, date presence, date format, calendar validity,
// repeat frequency.
func ValidateInput(in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return newValidationError(KindEmptyTitle, "title", "title is required")
	}
	if n := charCount(title); n > MaxTitleLength {
		return newValidationError(KindTitleTooLong, "title",
			fmt.Sprintf("title must be at most %d characters, got %d", MaxTitleLength, n))
	}

	if n := charCount(strings.TrimSpace(in.Description)); n > MaxDescriptionLength {
		return newValidationError(KindDescriptionTooLong, "description",
			fmt.Sprintf("description must be at most %d characters, got %d", MaxDescriptionLength, n))
	}

	if err := validateDate(strings.TrimSpace(in.Date)); err != nil {
		return err
	}

	if !in.RepeatFrequency.Valid() {
		return newValidationError(KindBadRepeatFrequency, "repeatFrequency",
			fmt.Sprintf("unknown repeat frequency %q", string(in.RepeatFrequency)))
	}
	return nil
}

func validateDate(date string) error {
	if date == "" {
		return newValidationError(KindMissingDate, "date", "date is required")
	}
	if len(date) != DateLength || !datePattern.MatchString(date) {
		return newValidationError(KindBadDateFormat, "date",
			fmt.Sprintf("date %q must use the YYYY-MM-DD format", date))
	}
	if _, err := recurrence.ParseDate(date); err != nil {
		return newValidationError(KindInvalidDate, "date",
			fmt.Sprintf("date %q is not a real calendar date", date))
	}
	return nil
}

// ValidateRecord is the storage boundary schema. Adapters run it before any
// write so a record that skipped the service is still rejected.
func ValidateRecord(r Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return newValidationError(KindMissingID, "id", "id is required")
	}
	if err := ValidateInput(Input{
		Title:           r.Title,
		Description:     r.Description,
		Date:            r.Date,
		RepeatFrequency: r.RepeatFrequency,
	}); err != nil {
		return err
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return newValidationError(KindTimestampsInverted, "updatedAt", "updatedAt precedes createdAt")
	}
	return nil
}

func charCount(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// Package core holds the moment domain: records, validation, the storage
// contract, projection into display entities, and the reactive service that
// ties them together.
package core

import (
	"time"

	"github.com/aretw0/moments/pkg/recurrence"
)

// RepeatFrequency is the recurrence rule of a moment.
type RepeatFrequency = recurrence.Frequency

const (
	RepeatNone    = recurrence.None
	RepeatDaily   = recurrence.Daily
	RepeatWeekly  = recurrence.Weekly
	RepeatMonthly = recurrence.Monthly
	RepeatYearly  = recurrence.Yearly
)

// Schema limits shared by the validator and every storage adapter.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 200
	DateLength           = 10
)

// Record is the persisted form of a moment.
type Record struct {
	ID              string          `json:"id" yaml:"id"`
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Date            string          `json:"date" yaml:"date"`
	RepeatFrequency RepeatFrequency `json:"repeatFrequency" yaml:"repeatFrequency"`
	CreatedAt       time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// Entity is a Record with temporal fields computed against a point in time.
// Entities are never persisted.
type Entity struct {
	Record

	DaysDifference int               `json:"daysDifference"`
	DisplayText    string            `json:"displayText"`
	Status         recurrence.Status `json:"status"`
	NextOccurrence string            `json:"nextOccurrence,omitempty"`
	IsRepeating    bool              `json:"isRepeating"`
}

// Input is the submission payload accepted by Create and Update.
type Input struct {
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Date            string          `json:"date"`
	RepeatFrequency RepeatFrequency `json:"repeatFrequency"`
}

// Patch carries the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Title           *string
	Description     *string
	Date            *string
	RepeatFrequency *RepeatFrequency
	UpdatedAt       time.Time
}

// Apply merges p into r and returns the result. r is not modified.
func (p Patch) Apply(r Record) Record {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.RepeatFrequency != nil {
		r.RepeatFrequency = *p.RepeatFrequency
	}
	// UpdatedAt never moves backwards, even if the caller's clock did.
	if p.UpdatedAt.After(r.UpdatedAt) {
		r.UpdatedAt = p.UpdatedAt
	}
	return r
}

// PatchFrom builds a Patch that overwrites every user-editable field with in.
func PatchFrom(in Input, updatedAt time.Time) Patch {
	return Patch{
		Title:           &in.Title,
		Description:     &in.Description,
		Date:            &in.Date,
		RepeatFrequency: &in.RepeatFrequency,
		UpdatedAt:       updatedAt,
	}
}

// EventType represents the kind of change applied to the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}

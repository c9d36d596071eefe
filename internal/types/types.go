// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and utils can all import types without depending
// on each other.
package types

import (
	"encoding/json"
	"strings"
)

// Gender is the closed set of values accepted for Record.Gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ParseGender normalises user input to one of the Gender constants.
// Matching is case-insensitive and "others" is accepted as GenderOther.
// Anything else is returned unchanged so that validation can reject it
// with a proper field error instead of a decode failure.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	case "other", "others":
		return GenderOther
	default:
		return Gender(s)
	}
}

// UnmarshalJSON decodes a JSON string through ParseGender.
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = ParseGender(s)
	return nil
}

// Fields are the user-controlled attributes of a Record.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON.
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package. These are the record invariants: every store backend
//     calls Fields.Validate before writing.
type Fields struct {
	Age         int    `json:"age"         validate:"gte=0"`
	Gender      Gender `json:"gender"      validate:"oneof=Male Female Other"`
	Nationality string `json:"nationality" validate:"required,notblank"`
}

// Validate checks the record invariants and returns a *ValidationError
// when any of them is broken.
func (f Fields) Validate() error {
	return Validate(f)
}

// Record is a stored entity. ID is assigned by the store on creation and
// never changes; Fields is embedded so the JSON shape is flat:
//
//	{ "id": 1, "age": 65, "gender": "Other", "nationality": "Indian" }
type Record struct {
	ID int64 `json:"id"`
	Fields
}

// Patch is a partial update. A nil pointer leaves the stored value alone;
// a Patch with every field set is a full replace.
type Patch struct {
	Age         *int    `json:"age,omitempty"`
	Gender      *Gender `json:"gender,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
}

// Apply returns f with every field present in p overwritten.
func (p Patch) Apply(f Fields) Fields {
	if p.Age != nil {
		f.Age = *p.Age
	}
	if p.Gender != nil {
		f.Gender = *p.Gender
	}
	if p.Nationality != nil {
		f.Nationality = *p.Nationality
	}
	return f
}

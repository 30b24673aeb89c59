package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Request DTOs

const (
	maxTitleLen    = 255
	maxLanguageLen = 32
)

// NullableTime is a presence-marked nullable timestamp for partial updates.
// Set false means the field was omitted; Set true with a nil Value applies
// null, clearing the stored date. JSON null decodes as provided-and-null.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// NullableTimeOf returns a provided NullableTime holding t (nil clears).
func NullableTimeOf(t *time.Time) NullableTime {
	return NullableTime{Set: true, Value: t}
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// CreateContentRequest contains parameters for creating new content.
// Status defaults to draft when empty.
type CreateContentRequest struct {
	Title           string
	Description     string
	Language        string
	Duration        int
	PublicationDate *time.Time
	Status          ContentStatus
	Categories      []string
}

// Validate enforces the field bounds the schema relies on.
func (r CreateContentRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidContent)
	}
	if len(r.Title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidContent, maxTitleLen)
	}
	if len(r.Language) > maxLanguageLen {
		return fmt.Errorf("%w: language exceeds %d characters", ErrInvalidContent, maxLanguageLen)
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidContent)
	}
	return nil
}

// UpdateContentRequest carries partial-update fields. A nil pointer means
// "leave the stored value alone"; a non-nil pointer applies the value. The
// distinction matters twice over: Categories nil leaves the join set
// untouched while a pointer to an empty slice clears it, and
// PublicationDate carries its own presence marker because the stored date is
// nullable, so "omitted" and "explicitly null" must stay distinguishable.
type UpdateContentRequest struct {
	Title           *string
	Description     *string
	Language        *string
	Duration        *int
	PublicationDate NullableTime
	Status          *ContentStatus
	Categories      *[]string
}

// Validate enforces the same field bounds as creation, on provided fields.
func (r UpdateContentRequest) Validate() error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return fmt.Errorf("%w: title must not be empty", ErrInvalidContent)
		}
		if len(*r.Title) > maxTitleLen {
			return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidContent, maxTitleLen)
		}
	}
	if r.Language != nil && len(*r.Language) > maxLanguageLen {
		return fmt.Errorf("%w: language exceeds %d characters", ErrInvalidContent, maxLanguageLen)
	}
	if r.Duration != nil && *r.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidContent)
	}
	return nil
}

// SetMediaRequest creates or replaces the single media record of a content.
type SetMediaRequest struct {
	MediaType   MediaType
	Source      MediaSource
	Provider    MediaProvider
	MediaFile   string
	ExternalURL string
}

// Validate enforces the exactly-one-of invariant between MediaFile and
// ExternalURL relative to the declared source. The schema does not carry
// this constraint.
func (r SetMediaRequest) Validate() error {
	switch r.Source {
	case MediaSourceUpload:
		if r.MediaFile == "" || r.ExternalURL != "" {
			return ErrInvalidMedia
		}
	case MediaSourceExternal:
		if r.ExternalURL == "" || r.MediaFile != "" {
			return ErrInvalidMedia
		}
	default:
		return ErrInvalidMedia
	}
	return nil
}

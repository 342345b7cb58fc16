package validation

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

// Field limits shared by listing, comment and message input.
const (
	MaxTitleLen       = 140
	MaxDescriptionLen = 5000
	MaxLocationLen    = 160
	MaxImages         = 12
	MaxCommentLen     = 2000
	MaxMessageLen     = 4000
	MaxBioLen         = 500
	MaxFullNameLen    = 120
	MaxInterests      = 20
	MaxAdminNotesLen  = 2000
)

// Errors collects field errors so clients can highlight every bad input at once.
type Errors map[string]string

func (e Errors) add(field, format string, args ...any) {
	if _, exists := e[field]; !exists {
		e[field] = fmt.Sprintf(format, args...)
	}
}

// Err returns nil when no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// RequiredText checks a trimmed field is non-empty and at most max runes.
func (e Errors) RequiredText(field, value string, max int) {
	v := strings.TrimSpace(value)
	if v == "" {
		e.add(field, "is required")
		return
	}
	if utf8.RuneCountInString(v) > max {
		e.add(field, "must not exceed %d characters", max)
	}
}

// OptionalText checks a field is at most max runes.
func (e Errors) OptionalText(field, value string, max int) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		e.add(field, "must not exceed %d characters", max)
	}
}

// Positive checks v > 0.
func (e Errors) Positive(field string, v float64) {
	if v <= 0 {
		e.add(field, "must be greater than 0")
	}
}

// AtLeast checks v >= min.
func (e Errors) AtLeast(field string, v, min int) {
	if v < min {
		e.add(field, "must be at least %d", min)
	}
}

// ImageURLs requires between 1 and MaxImages absolute http(s) URLs.
func (e Errors) ImageURLs(field string, urls []string) {
	if len(urls) == 0 {
		e.add(field, "at least one image is required")
		return
	}
	if len(urls) > MaxImages {
		e.add(field, "must not exceed %d images", MaxImages)
		return
	}
	for _, raw := range urls {
		if !IsHTTPURL(raw) {
			e.add(field, "must contain valid http(s) URLs")
			return
		}
	}
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AccommodationFields is the subset of an accommodation submission that is validated.
type AccommodationFields struct {
	Title         string
	Description   string
	Location      string
	PricePerNight float64
	MaxGuests     int
	Bedrooms      int
	Bathrooms     int
	ImageURLs     []string
}

// ValidateAccommodation returns field errors for an accommodation submission.
func ValidateAccommodation(f AccommodationFields) error {
	errs := Errors{}
	errs.RequiredText("title", f.Title, MaxTitleLen)
	errs.OptionalText("description", f.Description, MaxDescriptionLen)
	errs.RequiredText("location", f.Location, MaxLocationLen)
	errs.Positive("price_per_night", f.PricePerNight)
	errs.AtLeast("max_guests", f.MaxGuests, 1)
	errs.AtLeast("bedrooms", f.Bedrooms, 0)
	errs.AtLeast("bathrooms", f.Bathrooms, 0)
	errs.ImageURLs("image_urls", f.ImageURLs)
	return errs.Err()
}

// ExperienceFields is the subset of an experience submission that is validated.
type ExperienceFields struct {
	Title           string
	Description     string
	Location        string
	Price           float64
	DurationHours   float64
	MaxParticipants int
	ImageURLs       []string
}

// ValidateExperience returns field errors for an experience submission.
func ValidateExperience(f ExperienceFields) error {
	errs := Errors{}
	errs.RequiredText("title", f.Title, MaxTitleLen)
	errs.OptionalText("description", f.Description, MaxDescriptionLen)
	errs.RequiredText("location", f.Location, MaxLocationLen)
	errs.Positive("price", f.Price)
	errs.Positive("duration_hours", f.DurationHours)
	errs.AtLeast("max_participants", f.MaxParticipants, 1)
	errs.ImageURLs("image_urls", f.ImageURLs)
	return errs.Err()
}

// HostApplicationFields is a host application submission.
type HostApplicationFields struct {
	BusinessName string
	ListingType  string
	Location     string
	About        string
	Experience   string
	Phone        string
}

// ValidateHostApplication returns field errors for a host application.
func ValidateHostApplication(f HostApplicationFields) error {
	errs := Errors{}
	switch f.ListingType {
	case "accommodation", "experience", "both":
	default:
		errs.add("listing_type", "must be accommodation, experience or both")
	}
	errs.OptionalText("business_name", f.BusinessName, MaxTitleLen)
	errs.RequiredText("location", f.Location, MaxLocationLen)
	errs.RequiredText("about", f.About, MaxDescriptionLen)
	errs.OptionalText("experience", f.Experience, MaxDescriptionLen)
	errs.OptionalText("phone", f.Phone, 40)
	return errs.Err()
}

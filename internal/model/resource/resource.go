package resource

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation limits for user-submitted resources.
const (
	TitleMin       = 5
	TitleMax       = 120
	DescriptionMax = 500
	TagsMax        = 5
	TagMax         = 20
)

// Poster identifies who shared a resource.
type Poster struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Resource is one shared learning link in the vault.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Domain      string    `json:"domain"`
	Upvotes     int       `json:"upvotes"`
	Upvoters    []string  `json:"-"`
	HasUpvoted  bool      `json:"hasUpvoted"`
	PostedBy    Poster    `json:"postedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Draft is the editable part of a resource.
type Draft struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// FieldErrors maps form fields to user-facing messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Validate checks a draft against the vault form rules.
func (d Draft) Validate() FieldErrors {
	errs := FieldErrors{}
	title := strings.TrimSpace(d.Title)
	if n := utf8.RuneCountInString(title); n < TitleMin || n > TitleMax {
		errs["title"] = "Title must be 5-120 characters"
	}
	if !ValidURL(d.URL) {
		errs["url"] = "Please enter a valid HTTP/HTTPS URL"
	}
	if utf8.RuneCountInString(d.Description) > DescriptionMax {
		errs["description"] = "Description must be under 500 characters"
	}
	if len(d.Tags) == 0 {
		errs["tags"] = "Please add at least one tag"
	} else if len(d.Tags) > TagsMax {
		errs["tags"] = "Use at most 5 tags"
	} else {
		seen := make(map[string]struct{}, len(d.Tags))
		for _, tag := range d.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" || utf8.RuneCountInString(tag) > TagMax {
				errs["tags"] = "Tags must be 1-20 characters"
				break
			}
			if _, dup := seen[tag]; dup {
				errs["tags"] = "Tags must be unique"
				break
			}
			seen[tag] = struct{}{}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalized trims the draft fields.
func (d Draft) Normalized() Draft {
	tags := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		tags = append(tags, strings.TrimSpace(tag))
	}
	return Draft{
		Title:       strings.TrimSpace(d.Title),
		URL:         strings.TrimSpace(d.URL),
		Description: strings.TrimSpace(d.Description),
		Tags:        tags,
	}
}

// ValidURL accepts absolute http and https URLs.
func ValidURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// ExtractDomain returns the host without a leading "www.".
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Hostname() == "" {
		return "invalid-url"
	}
	return strings.Replace(parsed.Hostname(), "www.", "", 1)
}

// ViewFor marks whether viewerID upvoted the resource.
func (r Resource) ViewFor(viewerID string) Resource {
	r.HasUpvoted = false
	if viewerID == "" {
		return r
	}
	for _, id := range r.Upvoters {
		if id == viewerID {
			r.HasUpvoted = true
			break
		}
	}
	return r
}

// HasTag reports whether the resource carries tag exactly.
func (r Resource) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

package scholarship

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scholarship is one catalogue entry.
type Scholarship struct {
	Name        string   `json:"name" toml:"name"`
	States      []string `json:"states" toml:"states"`
	Boards      []string `json:"board" toml:"boards"`
	Grades      []string `json:"grades" toml:"grades"`
	Category    string   `json:"category" toml:"category"`
	IncomeLimit int64    `json:"income_limit" toml:"income_limit"`
	Deadline    string   `json:"deadline" toml:"deadline"`
	URL         string   `json:"url" toml:"url"`
}

// Profile is what a student fills in before matching.
type Profile struct {
	State        string `json:"state"`
	Board        string `json:"board"`
	Grade        string `json:"grade"`
	Category     string `json:"category"`
	Income       string `json:"income"`
	Interests    string `json:"interests"`
	Achievements string `json:"achievements"`
}

// Options lists the choices offered for the select-style profile fields.
type Options struct {
	States     []string `json:"states"`
	Boards     []string `json:"boards"`
	Grades     []string `json:"grades"`
	Categories []string `json:"categories"`
}

// DefaultOptions mirrors the stepper form.
func DefaultOptions() Options {
	return Options{
		States:     []string{"West Bengal", "Bihar", "Maharashtra", "Tamil Nadu", "All"},
		Boards:     []string{"CBSE", "ICSE", "State Board"},
		Grades:     []string{"9", "10", "11", "12", "College"},
		Categories: []string{"General", "SC", "ST", "OBC", "EWS"},
	}
}

var trustedSuffixes = []string{"gov.in", "edu.in", "ac.in", "org", "com"}

// FieldErrors maps profile fields to messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Validate requires every field except achievements and a numeric income.
func (p Profile) Validate(opts Options) FieldErrors {
	errs := FieldErrors{}
	checkChoice(errs, "state", "State", p.State, opts.States)
	checkChoice(errs, "board", "Board", p.Board, opts.Boards)
	checkChoice(errs, "grade", "Grade", p.Grade, opts.Grades)
	checkChoice(errs, "category", "Category", p.Category, opts.Categories)
	if strings.TrimSpace(p.Income) == "" {
		errs["income"] = "Family Income is required"
	} else if v, err := p.IncomeValue(); err != nil || v < 0 {
		errs["income"] = "Family Income must be a non-negative number"
	}
	if strings.TrimSpace(p.Interests) == "" {
		errs["interests"] = "Interests is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IncomeValue parses the income field.
func (p Profile) IncomeValue() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(p.Income), 10, 64)
}

func checkChoice(errs FieldErrors, key, label, value string, choices []string) {
	if value == "" {
		errs[key] = fmt.Sprintf("Select %s", label)
		return
	}
	if !contains(choices, value) {
		errs[key] = fmt.Sprintf("Unknown %s %q", strings.ToLower(label), value)
	}
}

// Eligible reports whether s matches the profile and links to a trusted host.
func (s Scholarship) Eligible(p Profile) bool {
	income, err := p.IncomeValue()
	if err != nil {
		return false
	}
	return (contains(s.States, p.State) || contains(s.States, "All")) &&
		contains(s.Boards, p.Board) &&
		contains(s.Grades, p.Grade) &&
		income <= s.IncomeLimit &&
		(s.Category == "All" || s.Category == p.Category) &&
		TrustedURL(s.URL)
}

// Filter returns the eligible entries in catalogue order.
func Filter(all []Scholarship, p Profile) []Scholarship {
	out := make([]Scholarship, 0, len(all))
	for _, s := range all {
		if s.Eligible(p) {
			out = append(out, s)
		}
	}
	return out
}

// TrustedURL accepts URLs whose host ends with a known institutional suffix.
func TrustedURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	host := parsed.Hostname()
	for _, suffix := range trustedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// FallbackEntry renders the card shown when ranking is unavailable.
func (s Scholarship) FallbackEntry() string {
	return fmt.Sprintf("**%s**\nDeadline: **%s**\n🔗 [Apply here](%s)", s.Name, s.Deadline, s.URL)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

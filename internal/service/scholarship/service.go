package scholarship

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	model "github.com/edgex-labs/edgex/backend/internal/model/scholarship"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// Completer produces one reply for a completion request.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// Result is what a match returns to the student.
type Result struct {
	Matches  []string            `json:"matches"`
	Eligible []model.Scholarship `json:"eligible"`
	Fallback bool                `json:"fallback"`
}

// Service filters the catalogue for a profile and asks the model to rank it.
type Service struct {
	catalogue []model.Scholarship
	options   model.Options
	tool      tool.Tool
	completer Completer
}

// NewService builds the matcher. t supplies the system prompt, model and temperature.
func NewService(catalogue []model.Scholarship, t tool.Tool, completer Completer) *Service {
	return &Service{
		catalogue: append([]model.Scholarship(nil), catalogue...),
		options:   model.DefaultOptions(),
		tool:      t,
		completer: completer,
	}
}

// Options returns the choices offered by the profile form.
func (s *Service) Options() model.Options {
	return s.options
}

// Match validates the profile, filters the catalogue and ranks it. When the
// completion fails the eligible entries are returned as plain cards.
func (s *Service) Match(ctx context.Context, p model.Profile) (Result, error) {
	if errs := p.Validate(s.options); errs != nil {
		return Result{}, errs
	}

	eligible := model.Filter(s.catalogue, p)
	result := Result{Eligible: eligible}

	prompt, err := BuildPrompt(eligible, p)
	if err != nil {
		return Result{}, err
	}

	req := ai.RequestFor(s.tool, nil)
	req.Query = prompt

	var reply string
	if s.completer == nil {
		err = fmt.Errorf("no completer configured")
	} else {
		reply, err = s.completer.Complete(ctx, req)
	}
	if err == nil {
		result.Matches = SplitReply(reply)
	}
	if err != nil || len(result.Matches) == 0 {
		if err != nil {
			slog.Error("scholarship ranking failed, using fallback", "component", "scholarship", "error", err)
		}
		result.Matches = fallbackEntries(eligible)
		result.Fallback = true
	}
	return result, nil
}

// BuildPrompt lists the eligible entries and the profile for the model.
func BuildPrompt(eligible []model.Scholarship, p model.Profile) (string, error) {
	if eligible == nil {
		eligible = []model.Scholarship{}
	}
	data, err := json.MarshalIndent(eligible, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode scholarships: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are ScholarshipScout, an accurate scholarship advisor for Indian students.\n\n")
	b.WriteString("Only recommend real, safe, working scholarships. Use only this list to recommend.\n")
	b.WriteString("Avoid fake or sketchy URLs. Prioritize trusted sources (NSP, UGC, DST, Buddy4Study, KVPY, etc).\n\n")
	b.WriteString("Scholarship Data:\n")
	b.Write(data)
	b.WriteString("\n\nStudent Profile:\n")
	fmt.Fprintf(&b, "- State: %s\n", p.State)
	fmt.Fprintf(&b, "- Board: %s\n", p.Board)
	fmt.Fprintf(&b, "- Grade: %s\n", p.Grade)
	fmt.Fprintf(&b, "- Category: %s\n", p.Category)
	fmt.Fprintf(&b, "- Family Income: ₹%s\n", p.Income)
	fmt.Fprintf(&b, "- Interests: %s\n", p.Interests)
	fmt.Fprintf(&b, "- Achievements: %s\n\n", p.Achievements)
	b.WriteString("Respond with max 5 matches in this format:\n")
	b.WriteString("1. **Scholarship Name**\nWhy it's a good match.\n🔗 [Apply here](link)")
	return b.String(), nil
}

// SplitReply breaks a ranked reply into cards on blank lines.
func SplitReply(reply string) []string {
	var out []string
	for _, chunk := range blankLines.Split(reply, -1) {
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func fallbackEntries(eligible []model.Scholarship) []string {
	out := make([]string, 0, len(eligible))
	for _, s := range eligible {
		out = append(out, s.FallbackEntry())
	}
	return out
}

package vault

import (
	"sort"
	"strings"

	"github.com/edgex-labs/edgex/backend/internal/model/resource"
)

// SortMode orders the visible resources.
type SortMode string

const (
	SortTop SortMode = "top"
	SortNew SortMode = "new"
)

// ParseSortMode falls back to SortTop for anything unknown.
func ParseSortMode(raw string) SortMode {
	if SortMode(strings.ToLower(strings.TrimSpace(raw))) == SortNew {
		return SortNew
	}
	return SortTop
}

// Query is the full view state of the resource list.
type Query struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
	Sort SortMode `json:"sort"`
}

// Apply filters then sorts. The input slice is never modified.
func Apply(all []resource.Resource, q Query) []resource.Resource {
	return Sort(Filter(all, q.Text, q.Tags), q.Sort)
}

// Filter keeps resources whose title, description or domain contains text
// (case-insensitive) and that carry every tag in tags. Input order is kept.
func Filter(all []resource.Resource, text string, tags []string) []resource.Resource {
	needle := strings.ToLower(text)
	out := make([]resource.Resource, 0, len(all))
	for _, r := range all {
		if needle != "" && !matchesText(r, needle) {
			continue
		}
		if !hasAllTags(r, tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sort returns a sorted copy. Top orders by upvotes with newer entries first on
// ties; New orders by creation time, newest first.
func Sort(list []resource.Resource, mode SortMode) []resource.Resource {
	out := make([]resource.Resource, len(list))
	copy(out, list)

	switch mode {
	case SortNew:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Upvotes != out[j].Upvotes {
				return out[i].Upvotes > out[j].Upvotes
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// AllTags returns the sorted set of tags used across all resources.
func AllTags(all []resource.Resource) []string {
	seen := make(map[string]struct{})
	for _, r := range all {
		for _, tag := range r.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func matchesText(r resource.Resource, needle string) bool {
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle) ||
		strings.Contains(strings.ToLower(r.Domain), needle)
}

func hasAllTags(r resource.Resource, tags []string) bool {
	for _, tag := range tags {
		if !r.HasTag(tag) {
			return false
		}
	}
	return true
}

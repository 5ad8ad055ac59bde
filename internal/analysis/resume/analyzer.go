package resume

import (
	"regexp"
	"unicode/utf8"
)

const (
	baseScore    = 50
	maxLength    = 8000
	keywordBonus = 2
	keywordCap   = 20
	passiveLimit = 3
	looksGoodTip = "Looks good! Consider tailoring to each job’s keywords."
)

// Report is the outcome of scoring one resume.
type Report struct {
	Score int      `json:"score"`
	Tips  []string `json:"tips"`
}

type check struct {
	pattern *regexp.Regexp
	tip     string
	penalty int
}

var checks = []check{
	{regexp.MustCompile(`(?i)\b(email|@)\b`), "Add a professional email.", 5},
	{regexp.MustCompile(`(?i)\b(phone|\+?\d{7,})\b`), "Include a reachable phone number.", 5},
	{regexp.MustCompile(`(?i)\b(education|b\.tech|btech|m\.tech|degree)\b`), "Add an Education section.", 10},
	{regexp.MustCompile(`(?i)\b(experience|internship|project)\b`), "Highlight experience, internships, or projects.", 10},
	{regexp.MustCompile(`(?i)\b(skills|technologies|tools)\b`), "List key skills and tools.", 10},
	{regexp.MustCompile(`(?i)\b(achievements|awards|certifications)\b`), "Add achievements or certifications.", 5},
}

var (
	passivePattern = regexp.MustCompile(`(?i)\b(responsible for|worked on)\b`)
	keywordPattern = regexp.MustCompile(`(?i)\b(project|react|node|ml|api|sql|aws)\b`)
)

// Analyze scores resume text on a 0-100 scale and suggests fixes.
func Analyze(text string) Report {
	score := baseScore
	tips := make([]string, 0, len(checks)+2)

	for _, c := range checks {
		if !c.pattern.MatchString(text) {
			tips = append(tips, c.tip)
			score -= c.penalty
		}
	}
	if len(passivePattern.FindAllStringIndex(text, -1)) > passiveLimit {
		tips = append(tips, "Use action verbs (built, led, delivered) over passive phrasing.")
	}
	if utf8.RuneCountInString(text) > maxLength {
		tips = append(tips, "Try to keep the resume concise (1–2 pages).")
		score -= 5
	}

	bonus := len(keywordPattern.FindAllStringIndex(text, -1)) * keywordBonus
	if bonus > keywordCap {
		bonus = keywordCap
	}
	score = clamp(score+bonus, 0, 100)

	if len(tips) == 0 {
		tips = append(tips, looksGoodTip)
	}
	return Report{Score: score, Tips: tips}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

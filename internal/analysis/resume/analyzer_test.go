package resume

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeEmptyResume(t *testing.T) {
	report := Analyze("")
	assert.Equal(t, 5, report.Score)
	assert.Len(t, report.Tips, 6)
	assert.Equal(t, "Add a professional email.", report.Tips[0])
}

func TestAnalyzeCompleteResume(t *testing.T) {
	text := `Asha Roy asha@example.com phone 9876543210
Education: B.Tech in Computer Science
Experience: internship at Acme, built a React and Node API with SQL on AWS
Skills: Go, Python
Achievements: hackathon winner`

	report := Analyze(text)
	// react, node, api, sql, aws
	assert.Equal(t, 60, report.Score)
	assert.Equal(t, []string{looksGoodTip}, report.Tips)
}

func TestAnalyzeKeywordBonusIsCapped(t *testing.T) {
	text := "email a@b.io phone 1234567 education experience skills awards " + strings.Repeat("project ", 30)
	assert.Equal(t, 70, Analyze(text).Score)
}

func TestAnalyzePassivePhrasingTip(t *testing.T) {
	text := strings.Repeat("worked on things. ", 4)
	report := Analyze(text)
	assert.Contains(t, report.Tips, "Use action verbs (built, led, delivered) over passive phrasing.")
}

func TestAnalyzeLongResumePenalty(t *testing.T) {
	short := Analyze("skills")
	long := Analyze("skills " + strings.Repeat("x", maxLength))
	assert.Equal(t, short.Score-5, long.Score)
}

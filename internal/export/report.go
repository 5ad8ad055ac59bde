package export

import (
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/edgex-labs/edgex/backend/internal/model/memory"
	"github.com/edgex-labs/edgex/backend/internal/model/speech"
)

const (
	purple      = "#7E57C2"
	deepPurple  = "#5E35B1"
	lavender    = "#F3E5F5"
	plum        = "#4A148C"
	tableHeader = "#CE93D8"
)

// CareerSuggestions fills the tables and chart of the career report. Empty
// fields fall back to DefaultSuggestions.
type CareerSuggestions struct {
	RecommendedCareers []string  `json:"recommendedCareers"`
	KeySkills          []string  `json:"keySkills"`
	NextSteps          []string  `json:"nextSteps"`
	SkillFitScores     []float64 `json:"skillFitScores"`
	SkillFitLabels     []string  `json:"skillFitLabels"`
}

func DefaultSuggestions() CareerSuggestions {
	return CareerSuggestions{
		RecommendedCareers: []string{"Software Engineer", "Designer"},
		KeySkills:          []string{"Problem Solving", "Collaboration"},
		NextSteps:          []string{"Take online course", "Build projects"},
		SkillFitScores:     []float64{80, 65, 90},
		SkillFitLabels:     []string{"Coding", "Communication", "Creativity"},
	}
}

func (s CareerSuggestions) withDefaults() CareerSuggestions {
	d := DefaultSuggestions()
	if len(s.RecommendedCareers) == 0 {
		s.RecommendedCareers = d.RecommendedCareers
	}
	if len(s.KeySkills) == 0 {
		s.KeySkills = d.KeySkills
	}
	if len(s.NextSteps) == 0 {
		s.NextSteps = d.NextSteps
	}
	if len(s.SkillFitScores) == 0 {
		s.SkillFitScores = d.SkillFitScores
	}
	if len(s.SkillFitLabels) == 0 {
		s.SkillFitLabels = d.SkillFitLabels
	}
	return s
}

// CareerReport renders the one-page career report for a remembered student.
func CareerReport(mem *memory.UserMemory, suggestions *CareerSuggestions) ([]byte, error) {
	m := memory.UserMemory{Name: "friend", FavSubject: "design", Goal: "designer"}
	if mem != nil {
		m = *mem
	}
	s := DefaultSuggestions()
	if suggestions != nil {
		s = suggestions.withDefaults()
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Your Career Report", false)
	pdf.SetCreator("Edgex", false)
	pdf.SetAutoPageBreak(true, 60)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(printable(s)) }
	pageWidth, pageHeight := pdf.GetPageSize()

	fill(pdf, purple)
	pdf.Rect(0, 0, pageWidth, 60, "F")
	textColor(pdf, "#FFFFFF")
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Text(40, 40, "Your Career Report")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(40, 55, "powered by Edgex")

	y := 90.0
	fill(pdf, lavender)
	pdf.RoundedRect(40, y-20, pageWidth-80, 80, 10, "1234", "F")
	textColor(pdf, plum)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(50, y, "User Information")
	pdf.SetFont("Helvetica", "", 12)
	textColor(pdf, "#333333")
	pdf.Text(50, y+30, text("Name: "+m.Name))
	pdf.Text(50, y+50, text("Dream Career: "+m.Goal))
	pdf.Text(280, y+30, text("Favorite Subject: "+m.FavSubject))

	y += 100
	pdf.SetFont("Helvetica", "B", 16)
	textColor(pdf, deepPurple)
	pdf.Text(40, y, "AI Suggestions")
	y += 10

	tableWidth := pageWidth - 80
	for _, table := range []struct {
		head string
		rows []string
	}{
		{"Recommended Career Fields", s.RecommendedCareers},
		{"Key Skills to Learn", s.KeySkills},
		{"Actionable Next Steps", s.NextSteps},
	} {
		pdf.SetXY(40, y)
		drawTable(pdf, tableWidth, table.head, table.rows, text)
		y = pdf.GetY() + 15
	}

	y += 25
	chartHeight := 100.0
	if y+chartHeight+30 > pageHeight-70 {
		pdf.AddPage()
		y = 60
	}
	pdf.SetFont("Helvetica", "B", 14)
	textColor(pdf, deepPurple)
	pdf.Text(40, y-10, "Skill Fit Overview")

	maxScore := 100.0
	for _, v := range s.SkillFitScores {
		if v > maxScore {
			maxScore = v
		}
	}
	drawBarChart(pdf, s.SkillFitScores, s.SkillFitLabels, 40, y, tableWidth, chartHeight, maxScore, text)

	pdf.SetFont("Helvetica", "", 10)
	textColor(pdf, "#888888")
	pdf.Text(40, 780, "Dream big! - Team Edgex")

	return render(pdf)
}

func drawTable(pdf *fpdf.Fpdf, width float64, head string, rows []string, text func(string) string) {
	const rowHeight = 23.0

	pdf.SetFont("Helvetica", "B", 11)
	fill(pdf, tableHeader)
	textColor(pdf, plum)
	draw(pdf, "#FFFFFF")
	pdf.SetX(40)
	pdf.CellFormat(width, rowHeight, text(head), "", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	textColor(pdf, "#333333")
	for i, row := range rows {
		if i%2 == 1 {
			fill(pdf, "#F5F5F5")
		} else {
			fill(pdf, "#FFFFFF")
		}
		pdf.SetX(40)
		pdf.CellFormat(width, rowHeight, text(row), "", 1, "L", true, 0, "")
	}
}

// drawBarChart draws one rounded bar per value with its label centred below.
// Mismatched data and labels draw nothing.
func drawBarChart(pdf *fpdf.Fpdf, data []float64, labels []string, x, y, width, height, maxVal float64, text func(string) string) {
	if len(data) == 0 || len(labels) != len(data) {
		return
	}
	if maxVal <= 0 {
		maxVal = 1
		for _, v := range data {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	slot := width / float64(len(data))
	barWidth := slot * 0.6
	gap := slot * 0.4

	fill(pdf, purple)
	draw(pdf, deepPurple)
	pdf.SetLineWidth(0.8)
	pdf.SetFont("Helvetica", "", 9)
	textColor(pdf, "#333333")

	for i, v := range data {
		if v < 0 {
			v = 0
		}
		barHeight := v / maxVal * height
		xPos := x + float64(i)*(barWidth+gap)
		if barHeight > 0 {
			pdf.RoundedRect(xPos, y+height-barHeight, barWidth, barHeight, 3, "1234", "F")
		}
		label := text(labels[i])
		pdf.Text(xPos+barWidth/2-pdf.GetStringWidth(label)/2, y+height+12, label)
	}

	draw(pdf, "#AAAAAA")
	pdf.Rect(x, y, width, height, "D")
}

// VoiceReport renders a transcript and its feedback.
func VoiceReport(session speech.FeedbackSession) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("VoiceMirror", false)
	pdf.SetCreator("Edgex", false)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	section := func(title, body string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		body = printable(body)
		if strings.TrimSpace(body) == "" {
			body = "None"
		}
		pdf.MultiCell(0, 7, tr(body), "", "L", false)
		pdf.Ln(6)
	}
	section("Transcript:", session.Transcript)
	section("Feedback:", session.Feedback)
	if !session.CreatedAt.IsZero() {
		pdf.SetFont("Helvetica", "I", 10)
		textColor(pdf, "#888888")
		pdf.CellFormat(0, 8, "Recorded "+session.CreatedAt.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")
	}
	return render(pdf)
}

package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFExporter writes a transcript as a plain A4 document, one labelled
// paragraph per message.
type PDFExporter struct{}

func (PDFExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(t.Title, true)
	pdf.SetCreator("Edgex", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	y := 10.0
	for _, m := range t.Messages {
		line := t.SpeakerLabel(m.Role) + ": " + strings.TrimSpace(m.Text)
		for _, wrapped := range pdf.SplitText(tr(printable(line)), 180) {
			if y > 280 {
				pdf.AddPage()
				y = 10
			}
			pdf.Text(10, y, wrapped)
			y += 8
		}
		y += 4
	}
	return render(pdf)
}

func (PDFExporter) FileExtension() string { return ".pdf" }

func (PDFExporter) MimeType() string { return "application/pdf" }

func render(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// printable drops emoji and other runes the core PDF fonts cannot show, so
// they do not turn into stray dots after code page translation.
func printable(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case r < 0x20:
		case r > 0x2122, r == 0x200D:
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type rgb struct{ r, g, b int }

// hex parses "#RRGGBB" or "#RGB".
func hex(s string) rgb {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return rgb{}
	}
	return rgb{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}
}

func fill(pdf *fpdf.Fpdf, color string) {
	c := hex(color)
	pdf.SetFillColor(c.r, c.g, c.b)
}

func draw(pdf *fpdf.Fpdf, color string) {
	c := hex(color)
	pdf.SetDrawColor(c.r, c.g, c.b)
}

func textColor(pdf *fpdf.Fpdf, color string) {
	c := hex(color)
	pdf.SetTextColor(c.r, c.g, c.b)
}

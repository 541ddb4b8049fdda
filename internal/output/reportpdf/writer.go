package reportpdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"incidentsim/internal/output/atomicfile"
	"incidentsim/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	colorTitle   = []int{31, 41, 55}
	colorMuted   = []int{107, 114, 128}
	colorByLevel = map[models.Severity][]int{
		models.Critical: {239, 68, 68},
		models.High:     {234, 88, 12},
		models.Medium:   {245, 158, 11},
		models.Low:      {34, 197, 94},
	}
)

// Writer renders reports as PDF documents.
type Writer struct {
	path string
}

// NewWriter creates a PDF report writer for path.
func NewWriter(path string) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("report path is empty")
	}
	return &Writer{path: path}, nil
}

// Target returns the output path.
func (w *Writer) Target() string {
	return w.path
}

// Render generates the PDF in memory and writes it atomically.
func (w *Writer) Render(ctx context.Context, payload models.ReportPayload) error {
	data, err := Generate(payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return atomicfile.Write(w.path, data, 0644)
}

// Generate builds the PDF document: a statistics page followed by a page of
// recent incidents.
func Generate(payload models.ReportPayload) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	addSummaryPage(pdf, tr, payload)
	addRecentPage(pdf, tr, payload.Recent)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addSummaryPage(pdf *fpdf.Fpdf, tr func(string) string, p models.ReportPayload) {
	pdf.AddPage()

	pdf.SetTextColor(colorTitle[0], colorTitle[1], colorTitle[2])
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(p.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
	generated := fmt.Sprintf("Generated: %s UTC", p.GeneratedAt.Format(timeLayout))
	if p.SessionID != "" {
		generated += " | Session: " + p.SessionID
	}
	pdf.CellFormat(0, 6, tr(generated), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetTextColor(colorTitle[0], colorTitle[1], colorTitle[2])
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary Statistics", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	if p.Summary == nil {
		pdf.CellFormat(0, 8, "No incidents recorded.", "", 1, "L", false, 0, "")
		return
	}

	s := p.Summary
	rows := [][2]string{
		{"Total Incidents", fmt.Sprintf("%d", s.TotalCount)},
		{"Most Common Attack", s.MostCommonAttackType},
		{"Average Severity", fmt.Sprintf("%.2f", s.AverageSeverityScore)},
		{"Critical Incidents", fmt.Sprintf("%d", s.CriticalCount)},
		{"Last 24h Incidents", fmt.Sprintf("%d", s.Last24hCount)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 8, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}
}

func addRecentPage(pdf *fpdf.Fpdf, tr func(string) string, recent []models.Incident) {
	pdf.AddPage()
	pdf.SetTextColor(colorTitle[0], colorTitle[1], colorTitle[2])
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Recent Incidents", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(recent) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, "No incidents recorded.", "", 1, "L", false, 0, "")
		return
	}

	for _, inc := range recent {
		pdf.SetTextColor(colorTitle[0], colorTitle[1], colorTitle[2])
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 8, fmt.Sprintf("Incident #%d", inc.ID), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr("Type: "+inc.AttackType), "", 1, "L", false, 0, "")
		if c, ok := colorByLevel[inc.Severity]; ok {
			pdf.SetTextColor(c[0], c[1], c[2])
		}
		pdf.CellFormat(0, 6, "Severity: "+inc.Severity.String(), "", 1, "L", false, 0, "")
		pdf.SetTextColor(colorTitle[0], colorTitle[1], colorTitle[2])
		pdf.CellFormat(0, 6, "Time: "+inc.Timestamp.Format(timeLayout), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Location: %s (%s) %.2f, %.2f",
			inc.Region, inc.CountryCode, inc.Coordinates.Lat, inc.Coordinates.Lon)), "", 1, "L", false, 0, "")
		pdf.Ln(4)
	}
}

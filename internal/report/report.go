package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/repository"
	"WardMonitorAPI/internal/vitals"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders a per-subject vitals report as PDF: subject header,
// the most recent readings and the logged alerts.
type Generator struct {
	subjects repository.ISubjectRepository
	readings repository.IReadingRepository
	alerts   repository.IAlertRepository
	log      *logger.Logger
}

func NewGenerator(
	subjects repository.ISubjectRepository,
	readings repository.IReadingRepository,
	alerts repository.IAlertRepository,
	log *logger.Logger,
) *Generator {
	return &Generator{
		subjects: subjects,
		readings: readings,
		alerts:   alerts,
		log:      log,
	}
}

// VitalsReport builds the PDF for one subject.
func (g *Generator) VitalsReport(ctx context.Context, subjectID int) ([]byte, error) {
	subject, err := g.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject %d: %w", subjectID, err)
	}
	if subject == nil {
		return nil, fmt.Errorf("subject %d not found", subjectID)
	}

	readings, _, err := g.readings.Query(ctx, &models.ReadingQueryRequest{
		SubjectID: subjectID,
		Limit:     50,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	alerts, err := g.alerts.GetBySubject(ctx, subjectID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Vitals Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Vitals Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Subject: %s (MRN %s)", subject.DisplayName, subject.MRN))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Room %s / Bed %s", subject.Room, subject.Bed))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(10)

	g.readingsTable(pdf, readings)
	pdf.Ln(8)
	g.alertsTable(pdf, alerts)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	g.log.Info("Vitals report generated for subject %d (%d bytes)", subjectID, buf.Len())
	return buf.Bytes(), nil
}

func (g *Generator) readingsTable(pdf *gofpdf.Fpdf, readings []models.VitalsReading) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Recent Readings")
	pdf.Ln(8)

	headers := []string{"Time", "HR", "Pulse", "SpO2", "ABP", "PAP", "EtCO2", "AWRR"}
	widths := []float64{38, 16, 16, 16, 26, 26, 18, 18}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range readings {
		row := []string{
			r.Timestamp.Format("01-02 15:04:05"),
			intCell(r.HeartRate),
			intCell(r.Pulse),
			intCell(r.SpO2),
			strCell(r.ArterialBP),
			strCell(r.PulmonaryAP),
			intCell(r.EtCO2),
			intCell(r.AirwayRespRate),
		}
		for i, c := range row {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(readings) == 0 {
		pdf.Cell(0, 6, "No readings recorded.")
		pdf.Ln(6)
	}
}

func (g *Generator) alertsTable(pdf *gofpdf.Fpdf, alerts []models.Alert) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Alert History")
	pdf.Ln(8)

	headers := []string{"Time", "Vital", "Value", "Direction", "Severity", "Ack"}
	widths := []float64{38, 52, 20, 24, 24, 16}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, a := range alerts {
		ack := "no"
		if a.Acknowledged {
			ack = "yes"
		}
		row := []string{
			a.Timestamp.Format("01-02 15:04:05"),
			vitals.KindLabel(a.VitalKind),
			strconv.Itoa(a.Value),
			a.Direction,
			a.Severity,
			ack,
		}
		for i, c := range row {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(alerts) == 0 {
		pdf.Cell(0, 6, "No alerts recorded.")
		pdf.Ln(6)
	}
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func strCell(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

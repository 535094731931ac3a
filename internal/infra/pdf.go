package infra

// pdf.go — Variance report rendering using go-pdf/fpdf.
// Generates an A4 summary with:
//   - Session header (code, warehouse, status, generation time)
//   - Counting progress line
//   - Surplus / shortfall / net summary table
//   - Per-category breakdown
//   - Top discrepant lines table
//
// The output file is saved to storagePath/variance_{code}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"stocktake/internal/dto"
)

// GenerateVarianceReportPDF renders a variance report for archival and email
// delivery. storagePath is the directory where the PDF will be written
// (created if needed). Returns the absolute path to the generated file.
func GenerateVarianceReportPDF(report *dto.VarianceReportResponse, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("variance_%s.pdf", report.SessionCode)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30 // total margins = 30mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Inventory Variance Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, report.SessionCode, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Status: %s    Generated: %s", report.Status, report.GeneratedAt), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Progress ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5,
		fmt.Sprintf("Lines counted: %d / %d    Lines with variance: %d",
			report.CountedItems, report.TotalItems, report.ItemsWithVariance),
		"", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Summary table ─────────────────────────────────────────────────────────
	col1 := contentW * 0.34
	col2 := contentW * 0.22
	col3 := contentW * 0.22
	col4 := contentW * 0.22

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Lines", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, "Units", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Value", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1, 6, "Surplus", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, fmt.Sprintf("%d", report.Surplus.ItemCount), "", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, report.Surplus.Units.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+report.Surplus.Value.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.CellFormat(col1, 6, "Shortfall", "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, fmt.Sprintf("%d", report.Shortfall.ItemCount), "", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, report.Shortfall.Units.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+report.Shortfall.Value.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Net", "T", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "", "T", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, report.NetUnits.StringFixed(2), "T", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+report.NetValue.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.Ln(5)

	// ── Category breakdown ────────────────────────────────────────────────────
	if len(report.ByCategory) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "By Category", "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(col1, 5, "Category", "B", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "Lines", "B", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 5, "Net units", "B", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, "Value", "B", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 8)
		for _, cat := range report.ByCategory {
			name := cat.Category
			if name == "" {
				name = "(uncategorized)"
			}
			pdf.CellFormat(col1, 5, name, "", 0, "L", false, 0, "")
			pdf.CellFormat(col2, 5, fmt.Sprintf("%d", cat.ItemCount), "", 0, "R", false, 0, "")
			pdf.CellFormat(col3, 5, cat.NetUnits.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(col4, 5, "$"+cat.VarianceValue.StringFixed(2), "", 1, "R", false, 0, "")
		}
		pdf.Ln(5)
	}

	// ── Top variances ─────────────────────────────────────────────────────────
	if len(report.TopVariances) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Largest Discrepancies", "", 1, "L", false, 0, "")

		tc1 := contentW * 0.16 // SKU
		tc2 := contentW * 0.30 // name
		tc3 := contentW * 0.14 // expected
		tc4 := contentW * 0.14 // final
		tc5 := contentW * 0.12 // variance
		tc6 := contentW * 0.14 // value

		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(tc1, 5, "SKU", "B", 0, "L", false, 0, "")
		pdf.CellFormat(tc2, 5, "Item", "B", 0, "L", false, 0, "")
		pdf.CellFormat(tc3, 5, "Expected", "B", 0, "R", false, 0, "")
		pdf.CellFormat(tc4, 5, "Counted", "B", 0, "R", false, 0, "")
		pdf.CellFormat(tc5, 5, "Var", "B", 0, "R", false, 0, "")
		pdf.CellFormat(tc6, 5, "Value", "B", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 8)
		for _, line := range report.TopVariances {
			name := line.Name
			// Truncate long names
			if len(name) > 30 {
				name = name[:29] + "…"
			}
			pdf.CellFormat(tc1, 5, line.SKU, "", 0, "L", false, 0, "")
			pdf.CellFormat(tc2, 5, name, "", 0, "L", false, 0, "")
			pdf.CellFormat(tc3, 5, line.Expected.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(tc4, 5, line.Final.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(tc5, 5, line.Variance.StringFixed(2), "", 0, "R", false, 0, "")
			pdf.CellFormat(tc6, 5, "$"+line.VarianceValue.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

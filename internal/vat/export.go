package vat

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	issuesSheet  = "Issues"
	failedSheet  = "Failures"
)

var issueHeaders = []string{
	"Transaction ID", "Invoice No", "Invoice Date", "Supplier Tax Code", "Supplier Name",
	"Payment Method", "Amount", "VAT", "Status", "Deductible VAT", "Non-deductible VAT",
	"Errors", "Warnings",
}

// WriteXLSX renders the report as a workbook with a summary sheet, an issues
// sheet and, when present, a sheet of failed transactions.
func (rep *IssuesReport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	s := rep.Summary
	summaryRows := [][]interface{}{
		{"Period", rep.From.Format(time.DateOnly) + " - " + rep.To.Format(time.DateOnly)},
		{"Total invoices", s.TotalInvoices},
		{"Total VAT", s.TotalVAT.InexactFloat64()},
		{"Deductible invoices", s.DeductibleCount},
		{"Deductible VAT", s.DeductibleVAT.InexactFloat64()},
		{"Non-deductible invoices", s.NonDeductibleCount},
		{"Non-deductible VAT", s.NonDeductibleVAT.InexactFloat64()},
		{"Partially deductible", s.PartialCount},
		{"With warnings", s.WarningCount},
		{"Failed", s.FailedCount},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 26)
	_ = f.SetColWidth(summarySheet, "B", "B", 28)

	if _, err := f.NewSheet(issuesSheet); err != nil {
		return fmt.Errorf("failed to create issues sheet: %w", err)
	}
	if err := writeHeader(f, issuesSheet, issueHeaders); err != nil {
		return err
	}

	rejected, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "9A0511"}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, it := range rep.Issues {
		row := i + 2
		values := []interface{}{
			it.TransactionID,
			it.InvoiceNumber,
			it.InvoiceDate.Format(time.DateOnly),
			it.SupplierTaxCode,
			it.SupplierName,
			it.PaymentMethod,
			it.Amount.InexactFloat64(),
			it.VATAmount.InexactFloat64(),
			it.Status,
			it.DeductibleAmount.InexactFloat64(),
			it.NonDeductibleAmount.InexactFloat64(),
			strings.Join(it.Errors, "; "),
			strings.Join(it.Warnings, "; "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(issuesSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write issue row: %w", err)
		}
		if it.Status == StatusRejected {
			statusCell := fmt.Sprintf("I%d", row)
			_ = f.SetCellStyle(issuesSheet, statusCell, statusCell, rejected)
		}
	}

	if len(rep.Failures) > 0 {
		if _, err := f.NewSheet(failedSheet); err != nil {
			return fmt.Errorf("failed to create failures sheet: %w", err)
		}
		if err := writeHeader(f, failedSheet, []string{"Transaction ID", "Error"}); err != nil {
			return err
		}
		for i, fl := range rep.Failures {
			f.SetCellValue(failedSheet, fmt.Sprintf("A%d", i+2), fl.TransactionID)
			f.SetCellValue(failedSheet, fmt.Sprintf("B%d", i+2), fl.Error)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}
	return nil
}

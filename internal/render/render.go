// Package render writes seller reports as JSON, CSV or an aligned text table.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/domain"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

var csvHeader = []string{"rank", "seller_id", "name", "revenue", "profit", "sales_count", "bonus", "top_products"}

// ParseFormat accepts table, json or csv, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected table, json or csv)", s)
	}
}

// Write renders report to w in the given format.
func Write(w io.Writer, format Format, report *analytics.Report) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return writeCSV(w, report.Rows)
	case FormatTable, "":
		return writeTable(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeJSON(w io.Writer, report *analytics.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []domain.ReportRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.SellerID,
			row.Name,
			money(row.Revenue),
			money(row.Profit),
			strconv.Itoa(row.SalesCount),
			money(row.Bonus),
			joinTopProducts(row.TopProducts),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, report *analytics.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "#\tSELLER\tNAME\tREVENUE\tPROFIT\tSALES\tBONUS\t")
	for i, row := range report.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			i+1, row.SellerID, row.Name, money(row.Revenue), money(row.Profit), row.SalesCount, money(row.Bonus))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\nsellers: %d  revenue: %s  profit: %s  receipts: %d (%d skipped)  items: %d (%d skipped)  anomalies: %d\n",
		s.Sellers, money(s.TotalRevenue), money(s.TotalProfit),
		s.ReceiptsProcessed, s.ReceiptsSkipped, s.ItemsProcessed, s.ItemsSkipped, len(report.Anomalies))
	return err
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// joinTopProducts renders "SKU:qty" pairs separated by semicolons.
func joinTopProducts(products []domain.TopProduct) string {
	parts := make([]string, len(products))
	for i, p := range products {
		parts[i] = p.SKU + ":" + strconv.Itoa(p.Quantity)
	}
	return strings.Join(parts, ";")
}

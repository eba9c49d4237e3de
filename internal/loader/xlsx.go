package loader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names of a dataset workbook. Line items live on their own sheet and
// are attached to receipts through receipt_seq, the zero based position of the
// receipt on the purchase_records sheet. Workbooks without receipt_seq fall
// back to receipt_id, which must then be unique.
const (
	SheetCustomers       = "customers"
	SheetProducts        = "products"
	SheetSellers         = "sellers"
	SheetPurchaseRecords = "purchase_records"
	SheetItems           = "items"
)

var (
	customerColumns = []string{"id", "name", "first_name", "last_name", "phone", "workplace", "position"}
	productColumns  = []string{"sku", "name", "category", "purchase_price", "sale_price"}
	sellerColumns   = []string{"id", "first_name", "last_name", "start_date", "position"}
	receiptColumns  = []string{"receipt_id", "date", "seller_id", "customer_id"}
	itemColumns     = []string{"receipt_id", "receipt_seq", "sku", "discount", "quantity", "sale_price"}
)

// sheetRows wraps the data rows of a sheet with a header lookup
type sheetRows struct {
	sheet  string
	colMap map[string]int
	rows   [][]string
}

func (s *sheetRows) value(row []string, col string) string {
	if idx, ok := s.colMap[col]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func (s *sheetRows) float(row []string, rowNum int, col string) (float64, error) {
	val := s.value(row, col)
	if val == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("sheet %s row %d column %s: invalid number %q", s.sheet, rowNum, col, val)
	}
	return f, nil
}

func (s *sheetRows) int(row []string, rowNum int, col string) (int, error) {
	f, err := s.float(row, rowNum, col)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("sheet %s row %d column %s: expected a whole number, got %v", s.sheet, rowNum, col, f)
	}
	return int(f), nil
}

// receiptPosition resolves the receipt an item row belongs to. receipt_seq wins
// when present; receipt_id alone must name exactly one receipt.
func (s *sheetRows) receiptPosition(row []string, rowNum int, records []domain.PurchaseRecord, index map[string]int, duplicates map[string]bool) (int, error) {
	receiptID := s.value(row, "receipt_id")

	if s.value(row, "receipt_seq") != "" {
		seq, err := s.int(row, rowNum, "receipt_seq")
		if err != nil {
			return 0, err
		}
		if seq < 0 || seq >= len(records) {
			return 0, fmt.Errorf("sheet %s row %d: receipt_seq %d out of range (%d receipts)", s.sheet, rowNum, seq, len(records))
		}
		if receiptID != "" && records[seq].ReceiptID != receiptID {
			return 0, fmt.Errorf("sheet %s row %d: receipt_seq %d is receipt %q, not %q", s.sheet, rowNum, seq, records[seq].ReceiptID, receiptID)
		}
		return seq, nil
	}

	pos, ok := index[receiptID]
	if !ok {
		return 0, fmt.Errorf("sheet %s row %d: unknown receipt %q", s.sheet, rowNum, receiptID)
	}
	if duplicates[receiptID] {
		return 0, fmt.Errorf("sheet %s row %d: receipt %q appears more than once, add a receipt_seq column", s.sheet, rowNum, receiptID)
	}
	return pos, nil
}

// LoadXLSX reads a dataset workbook. A missing sheet leaves the matching list nil.
func LoadXLSX(r io.Reader) (*domain.Dataset, error) {
	ds, err := loadXLSX(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return ds, nil
}

func loadXLSX(r io.Reader) (*domain.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}

	read := func(name string) (*sheetRows, error) {
		actual, ok := sheets[name]
		if !ok {
			return nil, nil
		}
		rows, err := f.GetRows(actual)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", actual, err)
		}
		s := &sheetRows{sheet: actual, colMap: make(map[string]int)}
		if len(rows) == 0 {
			return s, nil
		}
		for i, col := range rows[0] {
			s.colMap[strings.ToLower(strings.TrimSpace(col))] = i
		}
		for _, row := range rows[1:] {
			if !blank(row) {
				s.rows = append(s.rows, row)
			}
		}
		return s, nil
	}

	ds := &domain.Dataset{}

	if s, err := read(SheetCustomers); err != nil {
		return nil, err
	} else if s != nil {
		ds.Customers = make([]domain.Customer, 0, len(s.rows))
		for _, row := range s.rows {
			ds.Customers = append(ds.Customers, domain.Customer{
				ID:        s.value(row, "id"),
				Name:      s.value(row, "name"),
				FirstName: s.value(row, "first_name"),
				LastName:  s.value(row, "last_name"),
				Phone:     s.value(row, "phone"),
				Workplace: s.value(row, "workplace"),
				Position:  s.value(row, "position"),
			})
		}
	}

	if s, err := read(SheetProducts); err != nil {
		return nil, err
	} else if s != nil {
		ds.Products = make([]domain.Product, 0, len(s.rows))
		for i, row := range s.rows {
			purchase, err := s.float(row, i+2, "purchase_price")
			if err != nil {
				return nil, err
			}
			sale, err := s.float(row, i+2, "sale_price")
			if err != nil {
				return nil, err
			}
			ds.Products = append(ds.Products, domain.Product{
				SKU:           s.value(row, "sku"),
				Name:          s.value(row, "name"),
				Category:      s.value(row, "category"),
				PurchasePrice: purchase,
				SalePrice:     sale,
			})
		}
	}

	if s, err := read(SheetSellers); err != nil {
		return nil, err
	} else if s != nil {
		ds.Sellers = make([]domain.Seller, 0, len(s.rows))
		for _, row := range s.rows {
			ds.Sellers = append(ds.Sellers, domain.Seller{
				ID:        s.value(row, "id"),
				FirstName: s.value(row, "first_name"),
				LastName:  s.value(row, "last_name"),
				StartDate: s.value(row, "start_date"),
				Position:  s.value(row, "position"),
			})
		}
	}

	receiptIndex := make(map[string]int)
	duplicateReceipts := make(map[string]bool)
	if s, err := read(SheetPurchaseRecords); err != nil {
		return nil, err
	} else if s != nil {
		ds.PurchaseRecords = make([]domain.PurchaseRecord, 0, len(s.rows))
		for _, row := range s.rows {
			record := domain.PurchaseRecord{
				ReceiptID:  s.value(row, "receipt_id"),
				Date:       s.value(row, "date"),
				SellerID:   s.value(row, "seller_id"),
				CustomerID: s.value(row, "customer_id"),
			}
			if _, dup := receiptIndex[record.ReceiptID]; dup {
				duplicateReceipts[record.ReceiptID] = true
			}
			receiptIndex[record.ReceiptID] = len(ds.PurchaseRecords)
			ds.PurchaseRecords = append(ds.PurchaseRecords, record)
		}
	}

	if s, err := read(SheetItems); err != nil {
		return nil, err
	} else if s != nil {
		for i, row := range s.rows {
			rowNum := i + 2
			pos, err := s.receiptPosition(row, rowNum, ds.PurchaseRecords, receiptIndex, duplicateReceipts)
			if err != nil {
				return nil, err
			}

			discount, err := s.float(row, rowNum, "discount")
			if err != nil {
				return nil, err
			}
			quantity, err := s.int(row, rowNum, "quantity")
			if err != nil {
				return nil, err
			}
			price, err := s.float(row, rowNum, "sale_price")
			if err != nil {
				return nil, err
			}

			ds.PurchaseRecords[pos].Items = append(ds.PurchaseRecords[pos].Items, domain.LineItem{
				SKU:       s.value(row, "sku"),
				Discount:  discount,
				Quantity:  quantity,
				SalePrice: price,
			})
		}
	}

	return ds, nil
}

// WriteXLSX writes ds as a workbook that LoadXLSX can read back.
func WriteXLSX(ds *domain.Dataset, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	writeSheet := func(name string, header []string, rows [][]any) error {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		headerRow := make([]any, len(header))
		for i, h := range header {
			headerRow[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", name, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("failed to write sheet %s row %d: %w", name, i+2, err)
			}
		}
		return nil
	}

	var customers, products, sellers, receipts, items [][]any
	for _, c := range ds.Customers {
		customers = append(customers, []any{c.ID, c.Name, c.FirstName, c.LastName, c.Phone, c.Workplace, c.Position})
	}
	for _, p := range ds.Products {
		products = append(products, []any{p.SKU, p.Name, p.Category, p.PurchasePrice, p.SalePrice})
	}
	for _, s := range ds.Sellers {
		sellers = append(sellers, []any{s.ID, s.FirstName, s.LastName, s.StartDate, s.Position})
	}
	for seq, r := range ds.PurchaseRecords {
		receipts = append(receipts, []any{r.ReceiptID, r.Date, r.SellerID, r.CustomerID})
		for _, item := range r.Items {
			items = append(items, []any{r.ReceiptID, seq, item.SKU, item.Discount, item.Quantity, item.SalePrice})
		}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetSellers, sellerColumns, sellers},
		{SheetProducts, productColumns, products},
		{SheetPurchaseRecords, receiptColumns, receipts},
		{SheetItems, itemColumns, items},
		{SheetCustomers, customerColumns, customers},
	}
	for _, s := range sheets {
		if err := writeSheet(s.name, s.header, s.rows); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

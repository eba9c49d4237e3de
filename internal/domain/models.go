// internal/domain/models.go
package domain

import "time"

// Customer is part of the raw dataset. Receipts reference it by id only.
type Customer struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name,omitempty" db:"name"`
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	Workplace string `json:"workplace,omitempty" db:"workplace"`
	Position  string `json:"position,omitempty" db:"position"`
}

// DisplayName returns Name, or the first and last name joined when Name is empty.
func (c Customer) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return joinName(c.FirstName, c.LastName)
}

// Product represents a catalog entry keyed by SKU
type Product struct {
	SKU           string  `json:"sku" db:"sku"`
	Name          string  `json:"name" db:"name"`
	Category      string  `json:"category" db:"category"`
	PurchasePrice float64 `json:"purchase_price" db:"purchase_price"`
	SalePrice     float64 `json:"sale_price" db:"sale_price"`
}

// Seller represents a sales person
type Seller struct {
	ID        string `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	StartDate string `json:"start_date" db:"start_date"`
	Position  string `json:"position" db:"position"`
}

// DisplayName returns "{first_name} {last_name}".
func (s Seller) DisplayName() string {
	return s.FirstName + " " + s.LastName
}

// LineItem is a single purchased position of a receipt.
// Discount is a percentage in [0, 100]; zero when absent.
type LineItem struct {
	SKU       string  `json:"sku" db:"sku"`
	Discount  float64 `json:"discount,omitempty" db:"discount"`
	Quantity  int     `json:"quantity" db:"quantity"`
	SalePrice float64 `json:"sale_price" db:"sale_price"`
}

// PurchaseRecord is a receipt issued by a seller
type PurchaseRecord struct {
	ReceiptID  string     `json:"receipt_id" db:"receipt_id"`
	Date       string     `json:"date" db:"date"`
	SellerID   string     `json:"seller_id" db:"seller_id"`
	CustomerID string     `json:"customer_id" db:"customer_id"`
	Items      []LineItem `json:"items"`
}

// Dataset is the flat input of a sales analysis run.
// A nil list means the field was absent from the source document.
type Dataset struct {
	Customers       []Customer       `json:"customers"`
	Products        []Product        `json:"products"`
	Sellers         []Seller         `json:"sellers"`
	PurchaseRecords []PurchaseRecord `json:"purchase_records"`
}

// TopProduct is one entry of a seller's best-selling list
type TopProduct struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// ReportRow is the per-seller output of the analysis
type ReportRow struct {
	SellerID    string       `json:"seller_id"`
	Name        string       `json:"name"`
	Revenue     float64      `json:"revenue"`
	Profit      float64      `json:"profit"`
	SalesCount  int          `json:"sales_count"`
	TopProducts []TopProduct `json:"top_products"`
	Bonus       float64      `json:"bonus"`
}

// DatasetInfo describes a stored dataset
type DatasetInfo struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	SellerCount  int        `json:"seller_count" db:"seller_count"`
	ProductCount int        `json:"product_count" db:"product_count"`
	ReceiptCount int        `json:"receipt_count" db:"receipt_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastReportAt *time.Time `json:"last_report_at,omitempty" db:"last_report_at"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

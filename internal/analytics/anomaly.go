package analytics

import "github.com/rs/zerolog"

// AnomalyKind classifies a record that could not be fully resolved.
type AnomalyKind string

const (
	AnomalyDuplicateSeller AnomalyKind = "duplicate_seller"
	AnomalyDuplicateSKU    AnomalyKind = "duplicate_sku"
	AnomalyUnknownSeller   AnomalyKind = "unknown_seller"
	AnomalyUnknownSKU      AnomalyKind = "unknown_sku"
)

// Anomaly is a non-fatal referential problem found during a run.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	ReceiptID string      `json:"receipt_id,omitempty"`
	SellerID  string      `json:"seller_id,omitempty"`
	SKU       string      `json:"sku,omitempty"`
}

// diagnostics collects anomalies for one run and forwards them to the logger
type diagnostics struct {
	log       zerolog.Logger
	anomalies []Anomaly
}

func newDiagnostics(log zerolog.Logger) *diagnostics {
	return &diagnostics{log: log}
}

func (d *diagnostics) report(a Anomaly) {
	d.anomalies = append(d.anomalies, a)

	ev := d.log.Warn().Str("kind", string(a.Kind))
	if a.ReceiptID != "" {
		ev = ev.Str("receipt_id", a.ReceiptID)
	}
	if a.SellerID != "" {
		ev = ev.Str("seller_id", a.SellerID)
	}
	if a.SKU != "" {
		ev = ev.Str("sku", a.SKU)
	}

	switch a.Kind {
	case AnomalyDuplicateSeller:
		ev.Msg("duplicate seller id, later entry wins")
	case AnomalyDuplicateSKU:
		ev.Msg("duplicate sku in catalog, later entry wins")
	case AnomalyUnknownSeller:
		ev.Msg("receipt references unknown seller, skipping receipt")
	case AnomalyUnknownSKU:
		ev.Msg("line item references unknown sku, skipping item")
	default:
		ev.Msg("sales data anomaly")
	}
}

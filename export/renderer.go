package export

import "github.com/warp/rent-billing/billing"

// Renderer binds Options to the document functions so callers can hold
// one value for every format.
type Renderer struct {
	Options Options
}

func (r Renderer) LedgerPDF(stmt *billing.LedgerStatement) ([]byte, error) {
	return LedgerPDF(stmt, r.Options)
}

func (r Renderer) LedgerXLSX(stmt *billing.LedgerStatement) ([]byte, error) {
	return LedgerXLSX(stmt, r.Options)
}

func (r Renderer) CheckoutPDF(stmt *billing.CheckoutStatement) ([]byte, error) {
	return CheckoutPDF(stmt, r.Options)
}

func (r Renderer) CollectionXLSX(report *billing.CollectionReport) ([]byte, error) {
	return CollectionXLSX(report, r.Options)
}

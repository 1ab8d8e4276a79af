package model

// ConfidentLineItem is one itemized charge as read off the bill, every field
// wrapped with the oracle's per-field confidence.
type ConfidentLineItem struct {
	Description Confident[string]  `json:"description"`
	Quantity    Confident[float64] `json:"quantity"`
	UnitPrice   Confident[float64] `json:"unit_price"`
	TotalAmount Confident[float64] `json:"total_amount"`
}

// ExtractionRecord is one structured reading of a medical bill: the header
// fields plus the ordered line items, each wrapped with confidence. One
// instance is produced per extraction-oracle call; the reconciliation engine
// produces a single canonical instance of the same shape.
type ExtractionRecord struct {
	Provider string `json:"provider,omitempty"`

	HospitalName     Confident[string]  `json:"hospital_name"`
	PatientName      Confident[string]  `json:"patient_name"`
	BillNo           Confident[string]  `json:"bill_no"`
	BillDate         Confident[Date]    `json:"bill_date"`
	AdmissionDate    Confident[Date]    `json:"admission_date"`
	DischargeDate    Confident[Date]    `json:"discharge_date"`
	NetPayableAmount Confident[float64] `json:"net_payable_amount"`

	LineItems []ConfidentLineItem `json:"line_items"`
}

// ClaimHeader carries the unwrapped header fields onto an adjudicated claim.
type ClaimHeader struct {
	HospitalName  string `json:"hospital_name"`
	PatientName   string `json:"patient_name"`
	BillNo        string `json:"bill_no,omitempty"`
	BillDate      *Date  `json:"bill_date,omitempty"`
	AdmissionDate *Date  `json:"admission_date,omitempty"`
	DischargeDate *Date  `json:"discharge_date,omitempty"`
}

// Header unwraps the record's header fields, dropping confidences.
func (r ExtractionRecord) Header() ClaimHeader {
	return ClaimHeader{
		HospitalName:  r.HospitalName.Get(),
		PatientName:   r.PatientName.Get(),
		BillNo:        r.BillNo.Get(),
		BillDate:      r.BillDate.Value,
		AdmissionDate: r.AdmissionDate.Value,
		DischargeDate: r.DischargeDate.Value,
	}
}

// Items unwraps the record's line items, dropping confidences. Each item is
// tagged with its ordinal position so downstream stages can restore document
// order after concurrent processing.
func (r ExtractionRecord) Items() []LineItem {
	items := make([]LineItem, 0, len(r.LineItems))
	for i, li := range r.LineItems {
		items = append(items, LineItem{
			Ordinal:     i,
			Description: li.Description.Get(),
			Quantity:    li.Quantity.Get(),
			UnitPrice:   li.UnitPrice.Get(),
			TotalAmount: li.TotalAmount.Get(),
		})
	}
	return items
}

package client

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes the page returned by a list call.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type envelope[T any] struct {
	Status     string       `json:"status"`
	StatusCode int          `json:"status_code"`
	Data       T            `json:"data"`
	Meta       *Meta        `json:"meta"`
	Error      string       `json:"error"`
	Errors     []FieldError `json:"errors"`
}

type LoginResult struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      struct {
		ID          string   `json:"id"`
		Username    string   `json:"username"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	} `json:"user"`
}

// Line is a document line as entered on a form. Numbers travel as strings.
type Line struct {
	ItemID         string  `json:"item_id,omitempty"`
	Description    string  `json:"description,omitempty"`
	HSNCode        string  `json:"hsn_code,omitempty"`
	Quantity       string  `json:"quantity"`
	Rate           *string `json:"rate,omitempty"`
	TaxRatePercent *string `json:"tax_rate_percent,omitempty"`
}

// SubmittedTotals are the totals shown to the user when the form was sent.
type SubmittedTotals struct {
	SubTotal    string `json:"sub_total,omitempty"`
	CGSTAmount  string `json:"cgst_amount,omitempty"`
	SGSTAmount  string `json:"sgst_amount,omitempty"`
	RoundOff    string `json:"round_off,omitempty"`
	TotalAmount string `json:"total_amount,omitempty"`
}

type PreviewInput struct {
	Items     []Line           `json:"items"`
	Discount  string           `json:"discount,omitempty"`
	Date      string           `json:"date,omitempty"`
	Kind      string           `json:"kind,omitempty"`
	Submitted *SubmittedTotals `json:"submitted_totals,omitempty"`
}

type InvoiceInput struct {
	PartyID   string           `json:"party_id"`
	Date      string           `json:"date,omitempty"`
	DueDate   string           `json:"due_date,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Discount  string           `json:"discount,omitempty"`
	Items     []Line           `json:"items"`
	Submitted *SubmittedTotals `json:"submitted_totals,omitempty"`
}

type Totals struct {
	SubTotal            string `json:"sub_total"`
	Discount            string `json:"discount"`
	DiscountedTotal     string `json:"discounted_total"`
	TotalTax            string `json:"total_tax"`
	TaxRate             string `json:"tax_rate"`
	CGSTAmount          string `json:"cgst_amount"`
	SGSTAmount          string `json:"sgst_amount"`
	IGSTAmount          string `json:"igst_amount"`
	TotalBeforeRoundOff string `json:"total_before_round_off"`
	RoundOff            string `json:"round_off"`
	TotalAmount         string `json:"total_amount"`
	AmountInWords       string `json:"amount_in_words"`
}

type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type Preview struct {
	Totals     Totals     `json:"totals"`
	Mismatches []Mismatch `json:"totals_mismatches"`
}

type Document struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Number     string     `json:"number"`
	PartyID    string     `json:"party_id"`
	PartyName  string     `json:"party_name"`
	Date       string     `json:"date"`
	Status     string     `json:"status"`
	Totals     Totals     `json:"totals"`
	AmountPaid string     `json:"amount_paid"`
	BalanceDue string     `json:"balance_due"`
	Mismatches []Mismatch `json:"totals_mismatches"`
}

// InvoiceFilter narrows ListInvoices. Zero values are not sent.
type InvoiceFilter struct {
	PartyID string
	Status  string
	From    string
	To      string
	Page    int
	Limit   int
}

type Balance struct {
	PartyID        string `json:"party_id"`
	PartyName      string `json:"party_name"`
	OpeningBalance string `json:"opening_balance"`
	Balance        string `json:"balance"`
}

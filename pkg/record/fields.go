package record

// Canonical field names produced by the markup and JSON parsers.
const (
	FieldDate         = "Date"
	FieldAmount       = "Amount"
	FieldCurrency     = "Currency"
	FieldReference    = "Reference"
	FieldCode         = "Code"
	FieldCounterparty = "Counterparty"
	FieldNarration    = "Narration"
	FieldFee          = "Fee"
	FieldFeeCurrency  = "FeeCurrency"
	FieldBalanceType  = "BalanceType"
)

// DateLayout is the layout of FieldDate in canonical records.
const DateLayout = "2006-01-02"

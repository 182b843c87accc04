package format

import (
	"regexp"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/jsonstmt"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/markup"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/tabular"
)

// IB sections.
const (
	SectionDepositsWithdrawals = "Deposits & Withdrawals"
	SectionFees                = "Fees"
	SectionDividends           = "Dividends"
	SectionWithholdingTax      = "Withholding Tax"
	SectionInterest            = "Interest"
	SectionTrades              = "Trades"
)

func init() {
	register(Descriptor{
		Name:        "bcge",
		Description: "BCGE account statement, CSV export",
		Kind:        KindTabular,
		Encoding:    "cp1252",
		Currency:    "CHF",
		Layout:      tabular.Layout{Delimiter: ';', SkipLines: 11},
		Classifier: classifier.Config{Columns: classifier.Columns{
			Date:        []string{"Date"},
			DateLayouts: []string{"02.01.06"},
			Amount:      []string{"Amount"},
			Narration:   []string{"Posting text"},
		}},
	})

	register(Descriptor{
		Name:        "csob",
		Description: "ČSOB account statement, CSV export",
		Kind:        KindTabular,
		Encoding:    "utf-8",
		Currency:    "CZK",
		Layout:      tabular.Layout{Delimiter: ';', SkipLines: 2},
		Classifier: classifier.Config{
			Patterns: []classifier.Pattern{{
				Name:     "card-place",
				Category: classifier.CategoryCardPurchase,
				Prefix:   regexp.MustCompile(`Place: [A-Za-z ]+ `),
				Extract:  regexp.MustCompile(`Place: (?P<counterparty>[A-Za-z ]+?) `),
			}},
			Columns: classifier.Columns{
				Date:         []string{"due date"},
				DateLayouts:  []string{"02.01.2006"},
				Amount:       []string{"amount"},
				Currency:     []string{"currency"},
				Locale:       amount.German,
				Balance:      []string{"balance"},
				Narration:    []string{"note"},
				Counterparty: []string{"counter account name"},
			},
		},
	})

	register(Descriptor{
		Name:        "fio",
		Description: "Fio banka account statement, CSV export",
		Kind:        KindTabular,
		Encoding:    "utf-8-sig",
		Currency:    "CZK",
		Layout:      tabular.Layout{Delimiter: ';', SkipLines: 9},
		Classifier: classifier.Config{Columns: classifier.Columns{
			Date:         []string{"Datum"},
			DateLayouts:  []string{"02.01.2006"},
			Amount:       []string{"Objem"},
			Currency:     []string{"Měna"},
			Locale:       amount.Comma,
			Narration:    []string{"Poznámka", "Název protiúčtu", "Provedl"},
			Counterparty: []string{"Název protiúčtu"},
		}},
		Identity: reconcile.Options{ReferenceFields: []string{"ID pohybu"}},
	})

	register(Descriptor{
		Name:        "neon",
		Description: "neon account statement, CSV export",
		Kind:        KindTabular,
		Encoding:    "utf-8",
		Currency:    "CHF",
		Layout:      tabular.Layout{Delimiter: ';'},
		Classifier: classifier.Config{Columns: classifier.Columns{
			Date:      []string{"Date"},
			Amount:    []string{"Amount"},
			Narration: []string{"Description"},
			Metadata:  map[string]string{"category": "Category"},
		}},
	})

	register(Descriptor{
		Name:        "revolut",
		Description: "Revolut account statement, CSV export without usable header",
		Kind:        KindTabular,
		Encoding:    "utf-8",
		Currency:    "CHF",
		Layout: tabular.Layout{
			Delimiter: ',',
			SkipLines: 1,
			Columns: []string{
				"Type", "Product", "Started Date", "Completed Date", "Description",
				"Amount", "Fee", "Currency", "State", "Balance",
			},
			TrimLeadingSpace: true,
		},
		Classifier: classifier.Config{
			Codes: map[string]classifier.Category{
				"CARD_PAYMENT": classifier.CategoryCardPurchase,
				"ATM":          classifier.CategoryATMWithdrawal,
				"TRANSFER":     classifier.CategoryTransfer,
			},
			Columns: classifier.Columns{
				Date:      []string{"Started Date"},
				Amount:    []string{"Amount"},
				Fee:       []string{"Fee"},
				Currency:  []string{"Currency"},
				Narration: []string{"Description"},
				Code:      []string{"Type"},
				Balance:   []string{"Balance"},
			},
		},
		Exclude: []ExcludeRule{{Name: "not-completed", Field: "State", NotEquals: "COMPLETED"}},
	})

	register(Descriptor{
		Name:        "wise",
		Description: "Wise account statement, CSV export without usable header",
		Kind:        KindTabular,
		Encoding:    "utf-8",
		Currency:    "CHF",
		Layout: tabular.Layout{
			Delimiter: ',',
			SkipLines: 1,
			Columns: []string{
				"TransferWise ID", "Date", "Amount", "Currency", "Description", "Payment Reference",
				"Running Balance", "Exchange From", "Exchange To", "Exchange Rate", "Payer Name",
				"Payee Name", "Payee Account Number", "Merchant", "Card Last Four Digits",
				"Card Holder Full Name", "Attachment", "Note", "Total fees", "Exchange To Amount",
			},
			TrimLeadingSpace: true,
		},
		Classifier: classifier.Config{
			Patterns: []classifier.Pattern{{
				Name:     "card-issued-by",
				Category: classifier.CategoryCardPurchase,
				Prefix:   regexp.MustCompile(`(?i)\bissued by\b`),
				Extract:  regexp.MustCompile(`(?i)\bissued by\s+(?P<counterparty>.+)$`),
			}},
			Columns: classifier.Columns{
				Date:         []string{"Date"},
				DateLayouts:  []string{"02-01-2006", record.DateLayout},
				Amount:       []string{"Amount"},
				Fee:          []string{"Total fees"},
				Currency:     []string{"Currency"},
				Narration:    []string{"Description"},
				Counterparty: []string{"Merchant", "Payee Name", "Payer Name"},
				Balance:      []string{"Running Balance"},
			},
		},
		Identity: reconcile.Options{ReferenceFields: []string{"TransferWise ID"}},
	})

	register(Descriptor{
		Name:        "ib",
		Description: "Interactive Brokers activity statement, sectioned CSV",
		Kind:        KindTabular,
		Encoding:    "utf-8",
		Currency:    "USD",
		Layout:      tabular.Layout{Mode: tabular.ModeSectioned, Delimiter: ','},
		Classifier: classifier.Config{
			Sections: map[string]classifier.Category{
				SectionDepositsWithdrawals: classifier.CategoryTransfer,
				SectionFees:                classifier.CategoryFee,
				SectionDividends:           classifier.CategoryDividend,
				SectionWithholdingTax:      classifier.CategoryWithholdingTax,
				SectionInterest:            classifier.CategoryInterest,
				SectionTrades:              classifier.CategoryTradeSecurity,
			},
			ForexPrefix:       "Forex",
			NoDefaultPatterns: true,
			Columns: classifier.Columns{
				Date:        []string{"Date/Time", "Settle Date", "Date"},
				DateLayouts: []string{record.DateLayout, "2006-01-02, 15:04:05"},
				Amount:      []string{"Amount"},
				Currency:    []string{"Currency"},
				Locale:      amount.English,
				Narration:   []string{"Description"},
				Trade: &classifier.TradeColumns{
					AssetCategory: "Asset Category",
					Symbol:        "Symbol",
					Quantity:      "Quantity",
					Price:         "T. Price",
					Proceeds:      "Proceeds",
					Commission:    "Comm/Fee",
					OptionsPrefix: "Equity and Index Options",
				},
			},
		},
		Exclude: []ExcludeRule{
			{Name: "fees-subtotal", Section: SectionFees, Field: "Subtitle", Prefix: "Total"},
			{Name: "fees-notes", Section: SectionFees, Field: "Header", Prefix: "Notes"},
			{Name: "dividends-total", Section: SectionDividends, Field: "Currency", Contains: "total"},
			{Name: "withholding-total", Section: SectionWithholdingTax, Field: "Currency", Contains: "total"},
			{Name: "interest-total", Section: SectionInterest, Field: "Currency", Contains: "total"},
			{Name: "deposits-total", Section: SectionDepositsWithdrawals, Field: "Currency", NotPattern: regexp.MustCompile(`^[A-Z]{3}$`)},
			{Name: "trades-not-order", Section: SectionTrades, Field: "DataDiscriminator", NotEquals: "Order"},
		},
		KnownSectionsOnly:  true,
		Identity:           reconcile.Options{MetaKey: "txn_id_ib"},
		SecurityCategories: []string{"Stocks", "Equity and Index Options"},
	})

	register(Descriptor{
		Name:        "bcge-json",
		Description: "BCGE e-banking transactions, JSON export",
		Kind:        KindJSON,
		Encoding:    "utf-8",
		Currency:    "CHF",
		Schema: jsonstmt.Schema{
			Items: "$.data[*]",
			Fields: []jsonstmt.Field{
				{Name: record.FieldDate, Paths: []string{"$.bookingDate"}},
				{Name: record.FieldAmount, Paths: []string{"$.amount.value"}},
				{Name: record.FieldCurrency, Paths: []string{"$.amount.currency"}},
				{Name: record.FieldCode, Paths: []string{"$.type"}},
				{Name: record.FieldNarration, Paths: []string{"$.notification", "$.description"}, MinItems: 2, DropNumericTokens: true},
				{
					Name:  record.FieldCounterparty,
					Paths: []string{"$.senderAddress[0]", "$.senderAddress[1]", "$.beneficiaryAddress[0]"},
					Skip:  regexp.MustCompile(`^/C/`),
				},
			},
			Amount:    record.FieldAmount,
			Direction: &jsonstmt.Direction{Path: "$.type", Credit: "CREDIT"},
		},
		Classifier: classifier.Config{Columns: classifier.Columns{
			DateLayouts: []string{"2006-01-02T15:04:05.000Z"},
		}},
		IncomeSuspense: true,
	})

	register(Descriptor{
		Name:        "viseca",
		Description: "Viseca credit card transactions, JSON export",
		Kind:        KindJSON,
		Encoding:    "utf-8",
		Currency:    "CHF",
		Schema: jsonstmt.Schema{
			Items: "$.list[*]",
			Fields: []jsonstmt.Field{
				{Name: record.FieldDate, Paths: []string{"$.date"}},
				{Name: record.FieldAmount, Paths: []string{"$.amount"}},
				{Name: record.FieldCurrency, Paths: []string{"$.currency"}},
				{Name: record.FieldNarration, Paths: []string{"$.prettyName", "$.details"}},
				{Name: "Category", Paths: []string{"$.pfmCategory.name"}},
				{Name: record.FieldFee, Paths: []string{"$.serviceFees[*].amount"}, Sum: true},
				{Name: record.FieldFeeCurrency, Paths: []string{"$.serviceFees[0].currency"}},
			},
		},
		Classifier: classifier.Config{Columns: classifier.Columns{
			DateLayouts:  []string{"2006-01-02T15:04:05-0700", "2006-01-02T15:04:05Z07:00"},
			NegateAmount: true,
			Metadata:     map[string]string{"category": "Category"},
		}},
		Exclude: []ExcludeRule{{Name: "card-credit", Field: record.FieldAmount, Prefix: "-"}},
	})

	register(Descriptor{
		Name:        "camt053",
		Description: "ISO 20022 camt.053 bank-to-customer statement",
		Kind:        KindMarkup,
		Encoding:    "utf-8",
		Currency:    "EUR",
		Dialect:     markup.DialectCamt,
		Classifier: classifier.Config{Codes: map[string]classifier.Category{
			"SALA": classifier.CategorySalary,
			"POSD": classifier.CategoryCardPurchase,
			"CWDL": classifier.CategoryATMWithdrawal,
			"CHRG": classifier.CategoryFee,
			"INTR": classifier.CategoryInterest,
			"DVDE": classifier.CategoryDividend,
		}},
		Identity: reconcile.Options{ReferenceFields: []string{record.FieldReference}},
	})

	register(Descriptor{
		Name:        "ofx",
		Description: "Open Financial Exchange bank or credit card statement",
		Kind:        KindMarkup,
		Encoding:    "utf-8",
		Currency:    "USD",
		Dialect:     markup.DialectOFX,
		Classifier: classifier.Config{Codes: map[string]classifier.Category{
			"DIRECTDEP": classifier.CategorySalary,
			"ATM":       classifier.CategoryATMWithdrawal,
			"POS":       classifier.CategoryCardPurchase,
			"DIV":       classifier.CategoryDividend,
			"INT":       classifier.CategoryInterest,
			"FEE":       classifier.CategoryFee,
			"SRVCHG":    classifier.CategoryFee,
		}},
		Identity: reconcile.Options{ReferenceFields: []string{record.FieldReference}},
	})
}

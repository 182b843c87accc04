package markup

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// Balance type codes of camt.053 that describe the start of the statement.
var openingBalanceTypes = map[string]bool{"OPBD": true, "PRCD": true, "OPAV": true}

func (p *Parser) camtRecords(r io.Reader, file string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		doc, err := xmlquery.Parse(r)
		if err != nil {
			yield(record.Record{}, &record.MalformedRowError{
				Location: record.Location{File: file},
				Err:      fmt.Errorf("parse camt document: %w", err),
			})
			return
		}

		cur := cursor{file: file, index: 1}
		var closing []*xmlquery.Node
		for _, bal := range xmlquery.Find(doc, "//Bal") {
			if !openingBalanceTypes[camtBalanceType(bal)] {
				closing = append(closing, bal)
				continue
			}
			var rec record.Record
			rec, cur, err = p.camtBalance(cur, bal)
			if !yield(rec, err) {
				return
			}
		}

		for _, ntry := range xmlquery.Find(doc, "//Ntry") {
			var rec record.Record
			rec, cur, err = p.camtEntry(cur, ntry)
			if !yield(rec, err) {
				return
			}
		}

		for _, bal := range closing {
			var rec record.Record
			rec, cur, err = p.camtBalance(cur, bal)
			if !yield(rec, err) {
				return
			}
		}
	}
}

func (p *Parser) camtEntry(cur cursor, ntry *xmlquery.Node) (record.Record, cursor, error) {
	loc := record.Location{File: cur.file, Row: cur.index}
	fields := map[string]string{
		record.FieldDate:     camtDate(ntry),
		record.FieldCurrency: attr(ntry, "Amt", "Ccy"),
		record.FieldCode:     text(ntry, "BkTxCd/Domn/Fmly/SubFmlyCd", "BkTxCd/Prtry/Cd"),
		record.FieldReference: text(ntry,
			"AcctSvcrRef",
			"NtryDtls/TxDtls/Refs/AcctSvcrRef",
			"NtryDtls/TxDtls/Refs/EndToEndId",
			"NtryRef",
		),
		record.FieldNarration: camtNarration(ntry),
	}

	amt, err := signedAmount(ntry, loc)
	if err != nil {
		rec, next := cur.emit(record.KindTransaction, transactionColumns, fields)
		return rec, next, err
	}
	fields[record.FieldAmount] = amount.Canonical(amt)

	// The remote party is the debtor of a credit and the creditor of a debit.
	if amt.IsNegative() {
		fields[record.FieldCounterparty] = text(ntry,
			"NtryDtls/TxDtls/RltdPties/Cdtr/Nm", "NtryDtls/TxDtls/RltdPties/Cdtr/Pty/Nm")
	} else {
		fields[record.FieldCounterparty] = text(ntry,
			"NtryDtls/TxDtls/RltdPties/Dbtr/Nm", "NtryDtls/TxDtls/RltdPties/Dbtr/Pty/Nm")
	}

	if fee := firstNode(ntry, "Chrgs/TtlChrgsAndTaxAmt", "NtryDtls/TxDtls/Chrgs/TtlChrgsAndTaxAmt", "Chrgs/Rcrd/Amt"); fee != nil {
		n, err := amount.ParseNumber(fee.InnerText(), amount.Plain)
		if err != nil {
			rec, next := cur.emit(record.KindTransaction, transactionColumns, fields)
			return rec, next, &record.MalformedRowError{Location: loc, Field: record.FieldFee, Value: fee.InnerText(), Err: err}
		}
		fields[record.FieldFee] = amount.Canonical(n.Abs())
		fields[record.FieldFeeCurrency] = fee.SelectAttr("Ccy")
	}

	refErr := p.resolveReference(loc, fields)
	rec, next := cur.emit(record.KindTransaction, transactionColumns, fields)
	return rec, next, refErr
}

func (p *Parser) camtBalance(cur cursor, bal *xmlquery.Node) (record.Record, cursor, error) {
	loc := record.Location{File: cur.file, Row: cur.index}
	fields := map[string]string{
		record.FieldDate:        text(bal, "Dt/Dt", "Dt/DtTm"),
		record.FieldCurrency:    attr(bal, "Amt", "Ccy"),
		record.FieldBalanceType: camtBalanceType(bal),
	}
	if len(fields[record.FieldDate]) > len(record.DateLayout) {
		fields[record.FieldDate] = fields[record.FieldDate][:len(record.DateLayout)]
	}
	amt, err := signedAmount(bal, loc)
	if err == nil {
		fields[record.FieldAmount] = amount.Canonical(amt)
	}
	rec, next := cur.emit(record.KindBalance, balanceColumns, fields)
	return rec, next, err
}

func camtBalanceType(bal *xmlquery.Node) string {
	return text(bal, "Tp/CdOrPrtry/Cd", "Tp/CdOrPrtry/Prtry")
}

func camtDate(ntry *xmlquery.Node) string {
	d := text(ntry, "BookgDt/Dt", "BookgDt/DtTm", "ValDt/Dt", "ValDt/DtTm")
	if len(d) > len(record.DateLayout) {
		d = d[:len(record.DateLayout)]
	}
	return d
}

func camtNarration(ntry *xmlquery.Node) string {
	var parts []string
	for _, n := range xmlquery.Find(ntry, "NtryDtls/TxDtls/RmtInf/Ustrd") {
		if s := collapse(n.InnerText()); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return text(ntry, "NtryDtls/TxDtls/AddtlTxInf", "AddtlNtryInf")
}

// signedAmount reads Amt and folds CdtDbtInd into the sign.
func signedAmount(n *xmlquery.Node, loc record.Location) (decimal.Decimal, error) {
	raw := text(n, "Amt")
	d, err := amount.ParseNumber(raw, amount.Plain)
	if err != nil {
		return decimal.Zero, &record.MalformedRowError{Location: loc, Field: record.FieldAmount, Value: raw, Err: err}
	}
	d = d.Abs()
	switch ind := text(n, "CdtDbtInd"); ind {
	case "DBIT":
		d = d.Neg()
	case "CRDT":
	default:
		return decimal.Zero, &record.MalformedRowError{
			Location: loc, Field: "CdtDbtInd", Value: ind,
			Err: fmt.Errorf("unknown credit/debit indicator"),
		}
	}
	return d, nil
}

func firstNode(n *xmlquery.Node, exprs ...string) *xmlquery.Node {
	for _, expr := range exprs {
		if found := xmlquery.FindOne(n, expr); found != nil {
			return found
		}
	}
	return nil
}

func text(n *xmlquery.Node, exprs ...string) string {
	for _, expr := range exprs {
		if found := xmlquery.FindOne(n, expr); found != nil {
			if s := collapse(found.InnerText()); s != "" {
				return s
			}
		}
	}
	return ""
}

func attr(n *xmlquery.Node, expr, name string) string {
	if found := xmlquery.FindOne(n, expr); found != nil {
		return found.SelectAttr(name)
	}
	return ""
}

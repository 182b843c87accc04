package markup

import (
	"errors"
	"strings"
	"testing"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

const camtStatement = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.04">
  <BkToCstmrStmt>
    <Stmt>
      <Id>STMT-2024-06</Id>
      <Bal>
        <Tp><CdOrPrtry><Cd>CLBD</Cd></CdOrPrtry></Tp>
        <Amt Ccy="CHF">5912.30</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Dt><Dt>2024-06-30</Dt></Dt>
      </Bal>
      <Bal>
        <Tp><CdOrPrtry><Cd>OPBD</Cd></CdOrPrtry></Tp>
        <Amt Ccy="CHF">1000.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Dt><Dt>2024-06-01</Dt></Dt>
      </Bal>
      <Ntry>
        <Amt Ccy="CHF">87.70</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <BookgDt><Dt>2024-06-03</Dt></BookgDt>
        <AcctSvcrRef>ZKB-0001</AcctSvcrRef>
        <BkTxCd><Domn><Fmly><SubFmlyCd>POSD</SubFmlyCd></Fmly></Domn></BkTxCd>
        <Chrgs><TtlChrgsAndTaxAmt Ccy="CHF">1.50</TtlChrgsAndTaxAmt></Chrgs>
        <NtryDtls><TxDtls>
          <RltdPties><Cdtr><Nm>Migros   Zuerich</Nm></Cdtr></RltdPties>
          <RmtInf><Ustrd>Card purchase</Ustrd><Ustrd>Migros</Ustrd></RmtInf>
        </TxDtls></NtryDtls>
      </Ntry>
      <Ntry>
        <Amt Ccy="CHF">5000.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <BookgDt><Dt>2024-06-15</Dt></BookgDt>
        <BkTxCd><Domn><Fmly><SubFmlyCd>SALA</SubFmlyCd></Fmly></Domn></BkTxCd>
        <NtryDtls><TxDtls>
          <Refs><EndToEndId>NOTPROVIDED</EndToEndId></Refs>
          <RltdPties><Dbtr><Nm>ACME AG</Nm></Dbtr></RltdPties>
        </TxDtls></NtryDtls>
        <AddtlNtryInf>Salary June</AddtlNtryInf>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`

func collect(t *testing.T, p *Parser, doc, file string) ([]record.Record, error) {
	t.Helper()
	var out []record.Record
	for rec, err := range p.Records(strings.NewReader(doc), file) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestCamtRecords(t *testing.T) {
	records, err := collect(t, New(DialectCamt, Options{}, nil), camtStatement, "june.xml")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	opening := records[0]
	if opening.Kind != record.KindBalance || opening.Get(record.FieldBalanceType) != "OPBD" {
		t.Errorf("first record = %v %q, want opening balance", opening.Kind, opening.Get(record.FieldBalanceType))
	}

	purchase := records[1]
	tests := []struct {
		field string
		want  string
	}{
		{record.FieldDate, "2024-06-03"},
		{record.FieldAmount, "-87.7"},
		{record.FieldCurrency, "CHF"},
		{record.FieldReference, "ZKB-0001"},
		{record.FieldCode, "POSD"},
		{record.FieldCounterparty, "Migros Zuerich"},
		{record.FieldNarration, "Card purchase Migros"},
		{record.FieldFee, "1.5"},
		{record.FieldFeeCurrency, "CHF"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := purchase.Get(tt.field); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, got, tt.want)
			}
		})
	}

	salary := records[2]
	if got := salary.Get(record.FieldReference); got != "SALA-2024-06-15" {
		t.Errorf("payroll reference = %q, want SALA-2024-06-15", got)
	}
	if got := salary.Get(record.FieldCounterparty); got != "ACME AG" {
		t.Errorf("payroll counterparty = %q, want ACME AG", got)
	}
	if got := salary.Get(record.FieldNarration); got != "Salary June" {
		t.Errorf("payroll narration = %q, want Salary June", got)
	}

	closing := records[3]
	if closing.Kind != record.KindBalance || closing.Get(record.FieldAmount) != "5912.3" {
		t.Errorf("last record = %v %q, want closing balance 5912.3", closing.Kind, closing.Get(record.FieldAmount))
	}

	for i, rec := range records {
		if rec.Location.Row != i+1 {
			t.Errorf("record %d row = %d, want %d", i, rec.Location.Row, i+1)
		}
	}
}

func TestCamtMissingReference(t *testing.T) {
	doc := strings.Replace(camtStatement, "<SubFmlyCd>SALA</SubFmlyCd>", "<SubFmlyCd>ICDT</SubFmlyCd>", 1)
	_, err := collect(t, New(DialectCamt, Options{}, nil), doc, "june.xml")
	if !errors.Is(err, record.ErrMissingReference) {
		t.Fatalf("error = %v, want missing reference", err)
	}
	var mre *record.MissingReferenceError
	if !errors.As(err, &mre) || mre.Date != "2024-06-15" {
		t.Errorf("MissingReferenceError = %+v, want date 2024-06-15", mre)
	}
}

func TestCamtMalformedDocument(t *testing.T) {
	_, err := collect(t, New(DialectCamt, Options{}, nil), "<Document><Stmt>", "broken.xml")
	if !errors.Is(err, record.ErrMalformedRow) {
		t.Fatalf("error = %v, want malformed row", err)
	}
}

const ofxStatement = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="203" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
  <SIGNONMSGSRSV1>
    <SONRS>
      <STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
      <DTSERVER>20240630120000.000[0:UTC]</DTSERVER>
      <LANGUAGE>ENG</LANGUAGE>
    </SONRS>
  </SIGNONMSGSRSV1>
  <BANKMSGSRSV1>
    <STMTTRNRS>
      <TRNUID>1001</TRNUID>
      <STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
      <STMTRS>
        <CURDEF>USD</CURDEF>
        <BANKACCTFROM>
          <BANKID>318398732</BANKID>
          <ACCTID>78346129</ACCTID>
          <ACCTTYPE>CHECKING</ACCTTYPE>
        </BANKACCTFROM>
        <BANKTRANLIST>
          <DTSTART>20240601</DTSTART>
          <DTEND>20240630</DTEND>
          <STMTTRN>
            <TRNTYPE>DIRECTDEP</TRNTYPE>
            <DTPOSTED>20240615</DTPOSTED>
            <TRNAMT>5000.00</TRNAMT>
            <FITID>FT-0615</FITID>
            <NAME>ACME CORP</NAME>
            <MEMO>Payroll</MEMO>
          </STMTTRN>
          <STMTTRN>
            <TRNTYPE>POS</TRNTYPE>
            <DTPOSTED>20240618</DTPOSTED>
            <TRNAMT>-42.10</TRNAMT>
            <FITID>FT-0618</FITID>
            <NAME>CORNER GROCERY</NAME>
          </STMTTRN>
        </BANKTRANLIST>
        <LEDGERBAL>
          <BALAMT>4957.90</BALAMT>
          <DTASOF>20240630</DTASOF>
        </LEDGERBAL>
      </STMTRS>
    </STMTTRNRS>
  </BANKMSGSRSV1>
</OFX>`

func TestOFXRecords(t *testing.T) {
	records, err := collect(t, New(DialectOFX, Options{}, nil), ofxStatement, "june.ofx")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	deposit := records[0]
	if deposit.Get(record.FieldReference) != "FT-0615" || deposit.Get(record.FieldAmount) != "5000" {
		t.Errorf("deposit = %v", deposit.Fields)
	}
	if deposit.Get(record.FieldCode) != "DIRECTDEP" || deposit.Get(record.FieldCounterparty) != "ACME CORP" {
		t.Errorf("deposit = %v", deposit.Fields)
	}

	purchase := records[1]
	if purchase.Get(record.FieldAmount) != "-42.1" || purchase.Get(record.FieldDate) != "2024-06-18" {
		t.Errorf("purchase = %v", purchase.Fields)
	}
	if purchase.Get(record.FieldCurrency) != "USD" {
		t.Errorf("purchase currency = %q, want USD", purchase.Get(record.FieldCurrency))
	}

	balance := records[2]
	if balance.Kind != record.KindBalance || balance.Get(record.FieldAmount) != "4957.9" || balance.Get(record.FieldDate) != "2024-06-30" {
		t.Errorf("balance = %v %v", balance.Kind, balance.Fields)
	}
}

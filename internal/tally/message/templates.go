package message

const probeTemplate = `<?xml version="1.0"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Export</TALLYREQUEST>
  </HEADER>
  <BODY>
    <DESC>
      <STATICVARIABLES>
        <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>
      </STATICVARIABLES>
    </DESC>
  </BODY>
</ENVELOPE>`

const ledgerCreateTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Import Data</TALLYREQUEST>
  </HEADER>
  <BODY>
    <IMPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>All Masters</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        </STATICVARIABLES>
      </REQUESTDESC>
      <REQUESTDATA>
        <TALLYMESSAGE xmlns:UDF="TallyUDF">
          <LEDGER NAME="{{x .Name}}">
            <NAME>{{x .Name}}</NAME>
            <PARENT>{{x .Parent}}</PARENT>
            <ISBILLWISEON>Yes</ISBILLWISEON>
            <OPENINGBALANCE>{{.OpeningBalance}}</OPENINGBALANCE>
            <OPENINGBALANCETYPE>{{.BalanceType}}</OPENINGBALANCETYPE>
{{- if .Address}}
            <ADDRESS.LIST>
              <ADDRESS>{{x .Address}}</ADDRESS>
            </ADDRESS.LIST>
{{- end}}
{{- if .State}}
            <STATENAME>{{x .State}}</STATENAME>
            <STATE>{{x .State}}</STATE>
{{- end}}
{{- if .Pincode}}
            <PINCODE>{{x .Pincode}}</PINCODE>
{{- end}}
{{- if .Mobile}}
            <CONTACTDETAILS.LIST>
              <CONTACTNUMBER>{{x .Mobile}}</CONTACTNUMBER>
              <CONTACTTYPE>Mobile</CONTACTTYPE>
            </CONTACTDETAILS.LIST>
{{- end}}
{{- if .Email}}
            <EMAILDETAILS.LIST>
              <EMAILID>{{x .Email}}</EMAILID>
              <EMAILTYPE>Primary</EMAILTYPE>
            </EMAILDETAILS.LIST>
{{- end}}
{{- if .GSTNumber}}
            <GSTDETAILS.LIST>
              <APPLICABLEFROM>01-Apr-2017</APPLICABLEFROM>
              <GSTREGISTRATIONTYPE>Regular</GSTREGISTRATIONTYPE>
              <GSTNUMBER>{{x .GSTNumber}}</GSTNUMBER>
            </GSTDETAILS.LIST>
{{- end}}
{{- if .PANNumber}}
            <TAXREGISTEREDDETAILS.LIST>
              <REGISTRATIONTYPE>Income Tax</REGISTRATIONTYPE>
              <REGISTRATIONNUMBER>{{x .PANNumber}}</REGISTRATIONNUMBER>
            </TAXREGISTEREDDETAILS.LIST>
            <INCOMETAXNUMBER>{{x .PANNumber}}</INCOMETAXNUMBER>
{{- end}}
          </LEDGER>
        </TALLYMESSAGE>
      </REQUESTDATA>
    </IMPORTDATA>
  </BODY>
</ENVELOPE>`

const ledgerDeleteTemplate = `<?xml version="1.0"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Import Data</TALLYREQUEST>
  </HEADER>
  <BODY>
    <IMPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>All Masters</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        </STATICVARIABLES>
      </REQUESTDESC>
      <REQUESTDATA>
        <TALLYMESSAGE>
          <LEDGER NAME="{{x .Name}}" ACTION="Delete">
            <NAME>{{x .Name}}</NAME>
          </LEDGER>
        </TALLYMESSAGE>
      </REQUESTDATA>
    </IMPORTDATA>
  </BODY>
</ENVELOPE>`

const salesLedgerTemplate = `<?xml version="1.0"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Import Data</TALLYREQUEST>
  </HEADER>
  <BODY>
    <IMPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>All Masters</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        </STATICVARIABLES>
      </REQUESTDESC>
      <REQUESTDATA>
        <TALLYMESSAGE>
          <LEDGER NAME="{{x .Name}}">
            <NAME>{{x .Name}}</NAME>
            <PARENT>Sales Accounts</PARENT>
          </LEDGER>
        </TALLYMESSAGE>
      </REQUESTDATA>
    </IMPORTDATA>
  </BODY>
</ENVELOPE>`

const voucherCreateTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Import</TALLYREQUEST>
  </HEADER>
  <BODY>
    <IMPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>Voucher</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        </STATICVARIABLES>
      </REQUESTDESC>
      <REQUESTDATA>
        <TALLYMESSAGE>
          <VOUCHER REMOTEID="1" VCHTYPE="{{x .VoucherType}}" ACTION="Create" OBJVIEW="Accounting Voucher View">
            <DATE>{{.Date}}</DATE>
            <GUID>{{x .VoucherNumber}}</GUID>
            <NARRATION>{{x .Narration}}</NARRATION>
            <VOUCHERTYPENAME>{{x .VoucherType}}</VOUCHERTYPENAME>
            <VOUCHERNUMBER>{{x .VoucherNumber}}</VOUCHERNUMBER>
            <REFERENCE>{{x .VoucherNumber}}</REFERENCE>
            <PARTYLEDGERNAME>{{x .PartyLedgerName}}</PARTYLEDGERNAME>
            <PERSISTEDVIEW>Accounting Voucher View</PERSISTEDVIEW>
{{- range .Entries}}
            <ALLLEDGERENTRIES.LIST>
              <LEDGERNAME>{{x .LedgerName}}</LEDGERNAME>
              <GSTCLASS/>
              <ISDEEMEDPOSITIVE>{{yesNo .DeemedPositive}}</ISDEEMEDPOSITIVE>
              <LEDGERFROMITEM>No</LEDGERFROMITEM>
              <REMOVEZEROENTRIES>No</REMOVEZEROENTRIES>
              <ISPARTYLEDGER>{{yesNo .PartyLedger}}</ISPARTYLEDGER>
              <AMOUNT>{{amount .Amount}}</AMOUNT>
            </ALLLEDGERENTRIES.LIST>
{{- end}}
          </VOUCHER>
        </TALLYMESSAGE>
      </REQUESTDATA>
    </IMPORTDATA>
  </BODY>
</ENVELOPE>`

const voucherDeleteTemplate = `<?xml version="1.0"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Import Data</TALLYREQUEST>
  </HEADER>
  <BODY>
    <IMPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>Vouchers</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        </STATICVARIABLES>
      </REQUESTDESC>
      <REQUESTDATA>
        <TALLYMESSAGE>
          <VOUCHER VCHTYPE="{{x .VoucherType}}" ACTION="Delete">
            <VOUCHERNUMBER>{{x .VoucherNumber}}</VOUCHERNUMBER>
          </VOUCHER>
        </TALLYMESSAGE>
      </REQUESTDATA>
    </IMPORTDATA>
  </BODY>
</ENVELOPE>`

const ledgerListTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Export Data</TALLYREQUEST>
    <TYPE>Collection</TYPE>
    <ID>List of Accounts</ID>
  </HEADER>
  <BODY>
    <DESC>
      <STATICVARIABLES>
        <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
        <EXPLODEFLAG>Yes</EXPLODEFLAG>
        <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>
      </STATICVARIABLES>
      <TDL>
        <TDLMESSAGE>
          <COLLECTION NAME="LedgerCollection">
            <TYPE>Ledger</TYPE>
            <FETCH>Name, Parent, OpeningBalance, ClosingBalance</FETCH>
          </COLLECTION>
        </TDLMESSAGE>
      </TDL>
    </DESC>
  </BODY>
</ENVELOPE>`

const ledgerLookupTemplate = `<?xml version="1.0"?>
<ENVELOPE>
  <HEADER>
    <TALLYREQUEST>Export</TALLYREQUEST>
  </HEADER>
  <BODY>
    <EXPORTDATA>
      <REQUESTDESC>
        <REPORTNAME>Ledger</REPORTNAME>
        <STATICVARIABLES>
          <SVCURRENTCOMPANY>{{x .Company}}</SVCURRENTCOMPANY>
          <SVFROMNAME>{{x .Name}}</SVFROMNAME>
          <SVTONAME>{{x .Name}}</SVTONAME>
        </STATICVARIABLES>
      </REQUESTDESC>
    </EXPORTDATA>
  </BODY>
</ENVELOPE>`

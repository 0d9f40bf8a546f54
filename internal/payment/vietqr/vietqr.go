// Package vietqr builds NAPAS 247 (VietQR) bank-transfer payloads following the
// EMVCo merchant-presented QR layout, plus the img.vietqr.io quick link for rendering.
package vietqr

import (
	"fmt"
	"net/url"
	"strings"

	"blockify-backend/internal/payment"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	tagPayloadFormat   = "00"
	tagInitiation      = "01"
	tagMerchantAccount = "38"
	tagCurrency        = "53"
	tagAmount          = "54"
	tagCountry         = "58"
	tagAdditionalData  = "62"
	tagCRC             = "63"

	subTagGUID        = "00"
	subTagBeneficiary = "01"
	subTagService     = "02"
	subTagBankBIN     = "00"
	subTagAccountNo   = "01"
	subTagPurpose     = "08"

	payloadFormatVersion = "01"
	initiationDynamic    = "12"
	napasGUID            = "A000000727"
	serviceToAccount     = "QRIBFTTA"
	currencyVND          = "704"
	countryVN            = "VN"

	maxReferenceLen = 25
	maxAmountLen    = 13

	DefaultQuickLinkBase = "https://img.vietqr.io/image"
	DefaultTemplate      = "compact2"
)

type Generator struct {
	QuickLinkBase string
	Template      string
}

var _ payment.Generator = (*Generator)(nil)

func New() *Generator {
	return &Generator{QuickLinkBase: DefaultQuickLinkBase, Template: DefaultTemplate}
}

func (g *Generator) Generate(account payment.BankAccount, amount decimal.Decimal, reference string) (payment.QR, error) {
	if account.IsZero() {
		return payment.QR{}, &payment.FieldError{Field: "bank_account", Message: "is not configured"}
	}
	if !amount.IsPositive() {
		return payment.QR{}, &payment.FieldError{Field: "amount", Message: "must be greater than 0"}
	}
	if !amount.Equal(amount.Truncate(0)) {
		return payment.QR{}, &payment.FieldError{Field: "amount", Message: "must be a whole number of VND"}
	}
	amountStr := amount.StringFixed(0)
	if len(amountStr) > maxAmountLen {
		return payment.QR{}, &payment.FieldError{Field: "amount", Message: "exceeds the QR amount limit"}
	}

	reference = strings.TrimSpace(reference)
	if err := validateReference(reference); err != nil {
		return payment.QR{}, err
	}

	return payment.QR{
		Payload:   BuildPayload(account.BankBIN(), account.AccountNo(), amountStr, reference),
		ImageURL:  g.quickLink(account, amountStr, reference),
		Amount:    amount,
		Currency:  vnd,
		Reference: reference,
		Summary: payment.Summary{
			BankName:      account.BankID(),
			BankBIN:       account.BankBIN(),
			AccountNo:     account.AccountNo(),
			AccountName:   account.AccountName(),
			Amount:        amountStr,
			AmountDisplay: displayAmount(amount),
			Reference:     reference,
		},
	}, nil
}

// BuildPayload assembles the EMVCo TLV string and appends the CRC.
// Inputs are assumed validated.
func BuildPayload(bankBIN, accountNo, amount, reference string) string {
	beneficiary := tlv(subTagBankBIN, bankBIN) + tlv(subTagAccountNo, accountNo)
	merchant := tlv(subTagGUID, napasGUID) +
		tlv(subTagBeneficiary, beneficiary) +
		tlv(subTagService, serviceToAccount)

	var b strings.Builder
	b.WriteString(tlv(tagPayloadFormat, payloadFormatVersion))
	b.WriteString(tlv(tagInitiation, initiationDynamic))
	b.WriteString(tlv(tagMerchantAccount, merchant))
	b.WriteString(tlv(tagCurrency, currencyVND))
	b.WriteString(tlv(tagAmount, amount))
	b.WriteString(tlv(tagCountry, countryVN))
	b.WriteString(tlv(tagAdditionalData, tlv(subTagPurpose, reference)))
	// the checksum covers its own tag and length
	b.WriteString(tagCRC + "04")

	return b.String() + fmt.Sprintf("%04X", CRC16(b.String()))
}

func (g *Generator) quickLink(account payment.BankAccount, amount, reference string) string {
	base := strings.TrimRight(g.QuickLinkBase, "/")
	template := g.Template
	if template == "" {
		template = DefaultTemplate
	}

	q := url.Values{}
	q.Set("amount", amount)
	q.Set("addInfo", reference)
	q.Set("accountName", account.AccountName())

	// Encode sorts by key, which keeps the link deterministic.
	return fmt.Sprintf("%s/%s-%s-%s.png?%s", base, account.BankID(), account.AccountNo(), template, q.Encode())
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func validateReference(reference string) error {
	if reference == "" {
		return &payment.FieldError{Field: "reference", Message: "is required"}
	}
	if len(reference) > maxReferenceLen {
		return &payment.FieldError{Field: "reference", Message: fmt.Sprintf("must be at most %d characters", maxReferenceLen)}
	}
	for _, r := range reference {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == ' ', r == '-', r == '_', r == '.':
		default:
			return &payment.FieldError{Field: "reference", Message: fmt.Sprintf("contains unsupported character %q", r)}
		}
	}
	return nil
}

var (
	vnd       = currency.MustParseISO("VND")
	vnPrinter = message.NewPrinter(language.Vietnamese)
)

func displayAmount(amount decimal.Decimal) string {
	return vnPrinter.Sprintf("%d %s", amount.IntPart(), vnd)
}

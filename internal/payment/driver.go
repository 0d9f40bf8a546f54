package payment

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Generator is the interface all payment QR generators must implement.
// Implementations are pure: identical inputs always produce an identical QR.
type Generator interface {
	Generate(account BankAccount, amount decimal.Decimal, reference string) (QR, error)
}

// QR is derived from its inputs and never persisted.
type QR struct {
	Payload   string          `json:"payload"`
	ImageURL  string          `json:"imageUrl"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  currency.Unit   `json:"-"`
	Reference string          `json:"reference"`
	Summary   Summary         `json:"summary"`
}

// Summary is the human readable part rendered next to the code.
type Summary struct {
	BankName      string `json:"bankName"`
	BankBIN       string `json:"bankBin"`
	AccountNo     string `json:"accountNo"`
	AccountName   string `json:"accountName"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amountDisplay"`
	Reference     string `json:"reference"`
}

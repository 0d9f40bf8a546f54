package payment

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FieldError reports a malformed payment input.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = validator.New()

type bankAccountInput struct {
	BankID      string `validate:"required,max=32"`
	BankBIN     string `validate:"required,len=6,number"`
	AccountNo   string `validate:"required,min=6,max=19,number"`
	AccountName string `validate:"required,max=50"`
}

// BankAccount is the receiving account. Fields are only set through NewBankAccount,
// and the struct compares by value.
type BankAccount struct {
	bankID      string
	bankBIN     string
	accountNo   string
	accountName string
}

func NewBankAccount(bankID, bankBIN, accountNo, accountName string) (BankAccount, error) {
	in := bankAccountInput{
		BankID:      strings.TrimSpace(bankID),
		BankBIN:     strings.TrimSpace(bankBIN),
		AccountNo:   strings.TrimSpace(accountNo),
		AccountName: foldAccountName(accountName),
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return BankAccount{}, &FieldError{Field: verrs[0].Field(), Message: describeTag(verrs[0])}
		}
		return BankAccount{}, err
	}

	return BankAccount{
		bankID:      in.BankID,
		bankBIN:     in.BankBIN,
		accountNo:   in.AccountNo,
		accountName: in.AccountName,
	}, nil
}

func (a BankAccount) BankID() string      { return a.bankID }
func (a BankAccount) BankBIN() string     { return a.bankBIN }
func (a BankAccount) AccountNo() string   { return a.accountNo }
func (a BankAccount) AccountName() string { return a.accountName }

func (a BankAccount) IsZero() bool {
	return a == BankAccount{}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccountName turns "Nguyễn Văn Đức" into "NGUYEN VAN DUC"; banks print holder names
// in upper-case ASCII.
func foldAccountName(name string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(name))
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "number":
		return "must contain digits only"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

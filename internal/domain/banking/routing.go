package banking

import "strings"

// BankCode identifies a partner bank on the interbank network
type BankCode string

const (
	BankCodeHana    BankCode = "081"
	BankCodeKookmin BankCode = "004"
	BankCodeShinhan BankCode = "088"
)

// BankName returns the display name for a bank code
func (c BankCode) BankName() string {
	switch c {
	case BankCodeHana:
		return "Hana Bank"
	case BankCodeKookmin:
		return "Kookmin Bank"
	case BankCodeShinhan:
		return "Shinhan Bank"
	default:
		return "Unknown"
	}
}

// prefixRoutes maps 3-digit account number prefixes to owning banks.
// Each bank owns its clearing code as a prefix plus a block of
// product-line prefixes.
var prefixRoutes = map[string]BankCode{
	"081": BankCodeHana,
	"110": BankCodeHana,
	"111": BankCodeHana,
	"112": BankCodeHana,
	"113": BankCodeHana,
	"114": BankCodeHana,
	"115": BankCodeHana,
	"116": BankCodeHana,
	"117": BankCodeHana,
	"118": BankCodeHana,
	"119": BankCodeHana,

	"004": BankCodeKookmin,
	"123": BankCodeKookmin,
	"124": BankCodeKookmin,
	"125": BankCodeKookmin,
	"126": BankCodeKookmin,
	"127": BankCodeKookmin,
	"128": BankCodeKookmin,
	"129": BankCodeKookmin,

	"088": BankCodeShinhan,
	"456": BankCodeShinhan,
	"457": BankCodeShinhan,
	"458": BankCodeShinhan,
	"459": BankCodeShinhan,
}

// NormalizeAccountNumber strips formatting hyphens from an account number
func NormalizeAccountNumber(accountNumber string) string {
	return strings.ReplaceAll(strings.TrimSpace(accountNumber), "-", "")
}

// ResolveBankCode determines the owning bank from an account number's
// 3-digit prefix. Hyphens are stripped before matching. An unknown
// prefix returns ErrUnknownBank, which is a terminal classification:
// callers must not attempt any gateway call for such numbers.
func ResolveBankCode(accountNumber string) (BankCode, error) {
	normalized := NormalizeAccountNumber(accountNumber)
	if len(normalized) < 3 {
		return "", ErrUnknownBank
	}
	code, ok := prefixRoutes[normalized[:3]]
	if !ok {
		return "", ErrUnknownBank
	}
	return code, nil
}

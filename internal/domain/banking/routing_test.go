package banking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBankCode(t *testing.T) {
	cases := []struct {
		name          string
		accountNumber string
		want          BankCode
		wantErr       bool
	}{
		{"hana clearing prefix", "081-1234-5678", BankCodeHana, false},
		{"hana product prefix low", "110-555-666777", BankCodeHana, false},
		{"hana product prefix high", "119-000-111222", BankCodeHana, false},
		{"kookmin clearing prefix", "00412345678", BankCodeKookmin, false},
		{"kookmin product prefix", "123-45-6789012", BankCodeKookmin, false},
		{"kookmin product prefix high", "129-45-6789012", BankCodeKookmin, false},
		{"shinhan clearing prefix", "088-123-456789", BankCodeShinhan, false},
		{"shinhan product prefix", "456-789-012345", BankCodeShinhan, false},
		{"shinhan product prefix high", "459-789-012345", BankCodeShinhan, false},
		{"unknown prefix", "999-123-456789", "", true},
		{"gap between blocks", "122-123-456789", "", true},
		{"too short", "08", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := ResolveBankCode(tc.accountNumber)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrUnknownBank, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestResolveBankCodeIgnoresFormatting(t *testing.T) {
	plain, err := ResolveBankCode("08112345678")
	require.NoError(t, err)

	hyphenated, err := ResolveBankCode(" 081-1234-5678 ")
	require.NoError(t, err)

	assert.Equal(t, plain, hyphenated)
}

func TestNormalizeAccountNumber(t *testing.T) {
	assert.Equal(t, "08112345678", NormalizeAccountNumber("081-1234-5678"))
	assert.Equal(t, "08112345678", NormalizeAccountNumber("  08112345678  "))
}

func TestBankName(t *testing.T) {
	assert.Equal(t, "Hana Bank", BankCodeHana.BankName())
	assert.Equal(t, "Kookmin Bank", BankCodeKookmin.BankName())
	assert.Equal(t, "Shinhan Bank", BankCodeShinhan.BankName())
	assert.Equal(t, "Unknown", BankCode("999").BankName())
}

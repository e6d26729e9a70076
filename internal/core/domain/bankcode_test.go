package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidBankCode(t *testing.T) {
	assert.True(t, ValidBankCode("004"))
	assert.True(t, ValidBankCode("090"))
	assert.False(t, ValidBankCode("999"))
	assert.False(t, ValidBankCode("4"))
	assert.Equal(t, "KB Kookmin", BankName("004"))
	assert.Equal(t, "", BankName("999"))
}

func TestValidAccountNumber(t *testing.T) {
	assert.True(t, ValidAccountNumber("1234567890"))
	assert.True(t, ValidAccountNumber("123-456-789012"))
	assert.True(t, ValidAccountNumber("1234 5678 9012"))
	assert.False(t, ValidAccountNumber("123456789"), "too short")
	assert.False(t, ValidAccountNumber("123456789012345"), "too long")
	assert.False(t, ValidAccountNumber("12345abcde"))
	assert.Equal(t, "123456789012", NormalizeAccountNumber("123-456-789012"))
}

package dte_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/firmador-dte/pkg/dte"
)

func TestNormalizeNIT(t *testing.T) {
	for _, in := range []string{"06140101901012", "0614-010190-101-2", " 0614.010190.101.2 "} {
		got, err := dte.NormalizeNIT(in)
		require.NoError(t, err, in)
		assert.Equal(t, "06140101901012", got)
	}
}

func TestNormalizeNIT_Invalido(t *testing.T) {
	for _, in := range []string{"", "1234", "061401019010123", "0614-010190-101-X", "../0614010190101"} {
		_, err := dte.NormalizeNIT(in)
		assert.Error(t, err, in)
	}
}

func TestFormatNIT(t *testing.T) {
	assert.Equal(t, "0614-010190-101-2", dte.FormatNIT("06140101901012"))
	assert.Equal(t, "abc", dte.FormatNIT("abc"))
}

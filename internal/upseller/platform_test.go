package upseller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalPlatform(t *testing.T) {
	testCases := []struct {
		label    string
		expected string
	}{
		{label: "Mercado Libre", expected: "Mercado Libre"},
		{label: "mercado libre", expected: "Mercado Libre"},
		{label: "Mercado Livre", expected: "Mercado Libre"},
		{label: "Shopee", expected: "Shopee"},
		{label: "Loja própria", expected: "Loja própria"},
		{label: "  ", expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, CanonicalPlatform(test.label), test.label)
	}
}

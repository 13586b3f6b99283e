package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		template string
		year     int
		seq      int64
		want     string
	}{
		{"INV-{YYYY}-{SEQ5}", 2025, 42, "INV-2025-00042"},
		{"QUO-{YYYY}-{SEQ5}", 2025, 1, "QUO-2025-00001"},
		{"BKG-{YY}{SEQ6}", 2025, 7, "BKG-25000007"},
		{"BKG-{YY}{SEQ6}", 2009, 123, "BKG-09000123"},
		{"{SEQ}", 2025, 9, "9"},
		{"INV-{SEQ3}", 2025, 12345, "INV-12345"},
	}
	for _, tc := range cases {
		got, err := FormatNumber(tc.template, tc.year, tc.seq)
		require.NoError(t, err, tc.template)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatNumberRejectsBadInput(t *testing.T) {
	_, err := FormatNumber("", 2025, 1)
	assert.Error(t, err)

	_, err = FormatNumber("INV-{YYYY}", 2025, 1)
	assert.Error(t, err)

	_, err = FormatNumber("INV-{SEQ}", 2025, 0)
	assert.Error(t, err)

	_, err = FormatNumber("INV-{MM}-{SEQ}", 2025, 1)
	assert.Error(t, err)
}

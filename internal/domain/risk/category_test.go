package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory_Priority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, VeryLow.Priority())
	assert.Equal(t, 2, Low.Priority())
	assert.Equal(t, 3, Medium.Priority())
	assert.Equal(t, 4, High.Priority())
	assert.Equal(t, 5, VeryHigh.Priority())
	assert.Equal(t, 0, Category("").Priority())
	assert.Equal(t, 0, Category("Critical").Priority())
}

func TestCategory_Valid(t *testing.T) {
	t.Parallel()

	for _, c := range Categories {
		assert.True(t, c.Valid(), "%s must be valid", c)
	}
	assert.False(t, Category("").Valid())
	assert.False(t, Category("severe").Valid())
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Category
	}{
		{"Very Low", VeryLow},
		{"very low", VeryLow},
		{"VL", VeryLow},
		{" low ", Low},
		{"MEDIUM", Medium},
		{"m", Medium},
		{"High", High},
		{"very high", VeryHigh},
		{"VeryHigh", VeryHigh},
		{"vh", VeryHigh},
	}

	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	_, err := ParseCategory("extreme")
	assert.Error(t, err)
	_, err = ParseCategory("")
	assert.Error(t, err)
}

func TestCategory_Max(t *testing.T) {
	t.Parallel()

	assert.Equal(t, High, Low.Max(High))
	assert.Equal(t, High, High.Max(Low))
	assert.Equal(t, Medium, Medium.Max(Medium))
	// An undefined operand never wins.
	assert.Equal(t, VeryLow, VeryLow.Max(Category("")))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseCVSS3Vector tests base score computation for known vectors
func TestParseCVSS3Vector(t *testing.T) {
	tests := []struct {
		name   string
		vector string
		want   float64
	}{
		// Log4Shell: network, low complexity, full impact, changed scope.
		{"critical changed scope", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", 10.0},
		{"high unchanged scope", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8},
		{"medium local", "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:N/A:N", 5.5},
		{"cvss 3.0 accepted", "CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:U/C:L/I:L/A:N", 5.4},
		{"no impact is zero", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:N", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCVSS3Vector(tt.vector)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

// TestParseCVSS3Vector_Malformed tests rejection of invalid vectors
func TestParseCVSS3Vector_Malformed(t *testing.T) {
	vectors := []string{
		"",
		"AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",               // missing prefix
		"CVSS:2.0/AV:N/AC:L/Au:N/C:P/I:P/A:P",               // v2 vector
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:X/C:H/I:H/A:H",      // unknown scope
		"CVSS:3.1/AV:Z/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",      // unknown metric value
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N",                      // missing metrics
		"CVSS:3.1/AVN/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/X:Y:Z", // malformed pair
	}

	for _, v := range vectors {
		_, err := ParseCVSS3Vector(v)
		assert.ErrorIs(t, err, ErrInvalidInput, "vector %q", v)
	}
}

// TestValidSeverity tests the 0-10 range check
func TestValidSeverity(t *testing.T) {
	assert.True(t, ValidSeverity(0))
	assert.True(t, ValidSeverity(10))
	assert.True(t, ValidSeverity(7.5))
	assert.False(t, ValidSeverity(-0.1))
	assert.False(t, ValidSeverity(10.1))
}

// TestQuery_Validate tests the retrieval query contract
func TestQuery_Validate(t *testing.T) {
	valid := Query{Package: "flask", Types: []ItemType{ItemCVE, ItemAdvisory}}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, Query{Types: []ItemType{ItemCVE}}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{Package: "flask"}.Validate(), ErrInvalidQuery)

	unknown := Query{Package: "flask", Types: []ItemType{ItemType("exploit")}}
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidQuery)
}

package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Stats(t *testing.T) {
	c := validCatalog(t,
		withRow(validRow("CAR-001", "1979-12-26T05:10:00Z", "2.4"), FieldDepthKM, "6"),
		validRow("CAR-002", "1979-12-26T06:00:00Z", "3.0"),
		withRow(validRow("CAR-003", "1979-12-27T01:00:00Z", "3.0"), FieldDepthKM, "9.5"),
	)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []float64{2.4, 3.0, 3.0}, c.Magnitudes())
	assert.Equal(t, []float64{6, 9.5}, c.Depths())

	largest, ok := c.Largest()
	require.True(t, ok)
	assert.Equal(t, "CAR-002", largest.EventID, "first record wins ties")
	assert.False(t, largest.HasDepth())
}

func TestCatalog_ZeroValueIsUnvalidated(t *testing.T) {
	var c Catalog
	assert.False(t, c.Validated())
	_, ok := c.Largest()
	assert.False(t, ok)

	c = Catalog{Records: []AftershockRecord{{EventID: "CAR-001"}}}
	assert.False(t, c.Validated(), "a hand-built catalog is never validated")
}

func TestViolation_ErrorsIs(t *testing.T) {
	for kind, sentinel := range kindErrors {
		v := Violation{Row: 2, Field: "x", Kind: kind, Reason: "bad"}
		assert.ErrorIs(t, v, sentinel, kind)
	}
	assert.Len(t, kindErrors, len(Kinds))

	v := Violation{Row: 2, Field: FieldLatitude, Kind: KindOutOfRange, Reason: "95 is above the maximum 90"}
	assert.Equal(t, "row 2: latitude: 95 is above the maximum 90", v.Error())
	assert.False(t, errors.Is(v, ErrTypeMismatch))
}

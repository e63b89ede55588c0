package therapy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Basal")
	require.NoError(t, err)
	assert.Equal(t, KindBasal, k)

	_, err = ParseKind("target")
	assert.Error(t, err)
}

func TestSettingsClone_IsDeep(t *testing.T) {
	orig := DefaultSettings()
	cp := orig.Clone()
	cp.BasalSegments[0].Value = 9

	assert.Equal(t, 0.5, orig.BasalSegments[0].Value)
}

func TestSettingsWithValue(t *testing.T) {
	orig := DefaultSettings()
	next, n := orig.WithValue(KindICR, MustClock("11:00"), MustClock("17:00"), 9.5)

	assert.Equal(t, 1, n)
	assert.Equal(t, 9.5, next.ICRSegments[1].Value)
	assert.Equal(t, 10.0, orig.ICRSegments[1].Value)
	assert.Equal(t, orig.BasalSegments, next.BasalSegments)
}

func TestSettingsWithValue_NoMatch(t *testing.T) {
	orig := DefaultSettings()
	next, n := orig.WithValue(KindISF, MustClock("01:00"), MustClock("02:00"), 10)

	assert.Zero(t, n)
	assert.Equal(t, orig, next)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.ICRSegments = nil
	var verr *ValidationError
	require.ErrorAs(t, s.Validate(), &verr)
	assert.Equal(t, "icrSegments", verr.Field)

	s = DefaultSettings()
	s.ISFSegments[1].Value = 0
	require.ErrorAs(t, s.Validate(), &verr)
	assert.Equal(t, "isfSegments[1].value", verr.Field)

	s = DefaultSettings()
	s.BasalSegments[0].Value = 0
	assert.NoError(t, s.Validate(), "zero basal is a valid suspend rate")
}

func TestGoalsValidate(t *testing.T) {
	require.NoError(t, DefaultGoals().Validate())

	g := DefaultGoals()
	g.TargetRangeHigh = 60
	assert.Error(t, g.Validate())

	g = DefaultGoals()
	g.TargetTIR = 120
	assert.Error(t, g.Validate())
}

func TestSettingsJSONRoundTrip(t *testing.T) {
	orig := DefaultSettings()
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Settings
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig, back)
}

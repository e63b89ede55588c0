package suggest

import "github.com/basalcoach/basalcoach/internal/therapy"

// Apply returns a copy of settings in which every segment of the
// recommendation's schedule spanning exactly rec.TimeRange carries
// rec.SuggestedValue. The input is never modified.
//
// When no segment spans that range, for instance because the settings
// changed after the recommendation was generated, the copy is returned
// unchanged and the second result is false. TypeTarget is always a no-op.
func Apply(rec Recommendation, settings therapy.Settings) (therapy.Settings, bool) {
	kind, ok := rec.Type.Kind()
	if !ok {
		return settings.Clone(), false
	}
	out, changed := settings.WithValue(kind, rec.TimeRange.Start, rec.TimeRange.End, rec.SuggestedValue)
	return out, changed > 0
}

package model

// states are the two-letter codes of the US states plus the District of Columbia.
var states = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL",
	"GA", "HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME",
	"MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH",
	"NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI",
	"SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI",
	"WY",
}

var stateSet = func() map[string]bool {
	set := make(map[string]bool, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}()

// States returns the fixed list of region codes accepted for an address.
func States() []string {
	out := make([]string, len(states))
	copy(out, states)
	return out
}

// IsState reports whether code is one of the accepted region codes.
func IsState(code string) bool {
	return stateSet[code]
}

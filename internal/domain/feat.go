package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FeatType is the closed set of in-match achievements the watcher knows how
// to announce. Unrecognized upstream values normalize to FeatUnknown with
// the raw value kept for diagnostics, never to an error.
type FeatType int

const (
	FeatUnknown FeatType = iota
	FeatFirstBlood
	FeatTripleKill
	FeatUltraKill
	FeatRampage
	FeatGodlike
	FeatBeyondGodlike
	FeatCourierKill
	FeatMegaCreeps
	FeatDivineRapier
)

var featNames = map[FeatType]string{
	FeatUnknown:       "UNKNOWN",
	FeatFirstBlood:    "FIRST_BLOOD",
	FeatTripleKill:    "TRIPLE_KILL",
	FeatUltraKill:     "ULTRA_KILL",
	FeatRampage:       "RAMPAGE",
	FeatGodlike:       "GODLIKE",
	FeatBeyondGodlike: "BEYOND_GODLIKE",
	FeatCourierKill:   "COURIER_KILL",
	FeatMegaCreeps:    "MEGA_CREEPS",
	FeatDivineRapier:  "DIVINE_RAPIER",
}

func (t FeatType) String() string {
	if s, ok := featNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// featCodes is the upstream numeric encoding. It is not the enum order: the
// source service numbers feats by announcement priority.
var featCodes = map[int64]FeatType{
	0: FeatFirstBlood,
	1: FeatRampage,
	2: FeatUltraKill,
	3: FeatTripleKill,
	4: FeatGodlike,
	5: FeatBeyondGodlike,
	6: FeatCourierKill,
	7: FeatMegaCreeps,
	8: FeatDivineRapier,
}

var featLabels = func() map[string]FeatType {
	m := make(map[string]FeatType, len(featNames))
	for t, s := range featNames {
		if t != FeatUnknown {
			m[s] = t
		}
	}
	return m
}()

// FeatEvent is one achievement attributed to one player in one match.
type FeatEvent struct {
	Type      FeatType
	HeroID    int
	MatchID   int64
	AccountID int64
	// RawValue preserves whatever the upstream sent, for logging when Type
	// is FeatUnknown.
	RawValue string
}

// NormalizeFeatType maps any upstream encoding of a feat type (string of
// arbitrary casing/spacing, small integer, float from JSON decoding, or
// nil) to a FeatType. It is total: every input yields a defined tag.
func NormalizeFeatType(raw any) (FeatType, string) {
	switch v := raw.(type) {
	case nil:
		return FeatUnknown, ""
	case string:
		key := strings.ToUpper(strings.TrimSpace(v))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if t, ok := featLabels[key]; ok {
			return t, v
		}
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			if t, ok := featCodes[n]; ok {
				return t, v
			}
		}
		return FeatUnknown, v
	case int:
		return normalizeFeatCode(int64(v))
	case int64:
		return normalizeFeatCode(v)
	case float64:
		// JSON numbers decode as float64.
		if v == float64(int64(v)) {
			return normalizeFeatCode(int64(v))
		}
		return FeatUnknown, strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return FeatUnknown, fmt.Sprintf("%v", raw)
	}
}

func normalizeFeatCode(n int64) (FeatType, string) {
	raw := strconv.FormatInt(n, 10)
	if t, ok := featCodes[n]; ok {
		return t, raw
	}
	return FeatUnknown, raw
}

// IsMultiKill reports whether the feat is one of the clustered-kill types.
func (t FeatType) IsMultiKill() bool {
	switch t {
	case FeatTripleKill, FeatUltraKill, FeatRampage:
		return true
	}
	return false
}

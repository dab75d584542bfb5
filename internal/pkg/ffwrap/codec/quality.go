package codec

// Tier holds the codec specific numeric quality knobs behind one named
// quality level. CRF drives the software encoders and NVENC's -cq; the
// GlobalQuality column drives the Intel QSV and AMD AMF paths.
type Tier struct {
	CRF           int
	GlobalQuality int
}

var qualityTiers = map[string]Tier{
	"veryhigh": {CRF: 19, GlobalQuality: 18},
	"high":     {CRF: 24, GlobalQuality: 21},
	"medium":   {CRF: 28, GlobalQuality: 24},
	"low":      {CRF: 31, GlobalQuality: 27},
	"verylow":  {CRF: 34, GlobalQuality: 30},
	"superlow": {CRF: 38, GlobalQuality: 33},
}

// nvencPresets maps the named speed presets onto NVENC's numeric scale.
var nvencPresets = map[string]int{
	"ultrafast": 1,
	"veryfast":  2,
	"faster":    3,
	"medium":    4,
	"slow":      5,
	"veryslow":  6,
}

// TierFor returns the quality tier for a named level, falling back to medium
// for anything unrecognized so a builder can never produce an empty vector.
func TierFor(quality string) Tier {
	if t, ok := qualityTiers[quality]; ok {
		return t
	}
	return qualityTiers["medium"]
}

func nvencPresetFor(preset string) int {
	if p, ok := nvencPresets[preset]; ok {
		return p
	}
	return nvencPresets["medium"]
}

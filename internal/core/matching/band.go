package matching

// Band is the user-facing label of a confidence value.
type Band string

const (
	BandExcellent Band = "Excellent"
	BandGood      Band = "Good"
	BandModerate  Band = "Moderate"
	BandPoor      Band = "Poor"
	BandVeryPoor  Band = "Very Poor"
)

// Display ladder. Independent of the admission floor and reason bands.
const (
	DisplayExcellent = 0.85
	DisplayGood      = 0.70
	DisplayModerate  = 0.55
	DisplayPoor      = 0.35
)

func ConfidenceBand(confidence float64) Band {
	switch {
	case confidence >= DisplayExcellent:
		return BandExcellent
	case confidence >= DisplayGood:
		return BandGood
	case confidence >= DisplayModerate:
		return BandModerate
	case confidence >= DisplayPoor:
		return BandPoor
	default:
		return BandVeryPoor
	}
}

package analytics

// ConfidenceLevel qualifies every derived observation, computed strictly from
// sample size.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceHigh     ConfidenceLevel = "high"
)

// MinInsightSampleSize is the floor below which no observation is emitted at
// all.
const MinInsightSampleSize = 10

// Confidence maps a sample size to a confidence level. ok is false below
// MinInsightSampleSize, meaning the observation must be suppressed rather
// than emitted with an honest-but-useless qualifier.
func Confidence(sampleSize int) (level ConfidenceLevel, ok bool) {
	switch {
	case sampleSize < MinInsightSampleSize:
		return "", false
	case sampleSize < 30:
		return ConfidenceLow, true
	case sampleSize < 100:
		return ConfidenceModerate, true
	default:
		return ConfidenceHigh, true
	}
}

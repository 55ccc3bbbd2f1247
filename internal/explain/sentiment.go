package explain

// Sentiment is the narrative bucket of a feature value.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Classify buckets a feature value using the same thresholds for every feature.
func Classify(v float64) Sentiment {
	switch {
	case v >= 0.7:
		return Positive
	case v >= 0.4:
		return Neutral
	default:
		return Negative
	}
}

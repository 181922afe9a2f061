package classifier

import "context"

// Intent is the closed set of message categories the assistant understands.
type Intent string

const (
	IntentTimeQuery           Intent = "time_query"
	IntentHistoricalTimeQuery Intent = "historical_time_query"
	IntentLabRelated          Intent = "lab_related"
	IntentGeneral             Intent = "general"
)

type Result struct {
	Intent     Intent
	Confidence float64
}

// Classifier labels a message with one of the four intents. Implementations
// must not return an error: when the upstream model is unreachable or answers
// garbage they fall back to Keyword and report a lower confidence.
type Classifier interface {
	Classify(ctx context.Context, message string) Result
}

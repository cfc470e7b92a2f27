package metric

// Metric is the similarity measure used to rank candidates.
type Metric string

// Metric constants.
const (
	// Cosine ranks by angular similarity, higher is closer.
	Cosine Metric = "cosine"
	// Euclidean ranks by straight-line distance, lower is closer.
	Euclidean Metric = "euclidean"
)

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == Cosine || m == Euclidean
}

// HigherIsBetter reports whether larger scores mean more similar.
func (m Metric) HigherIsBetter() bool {
	return m == Cosine
}

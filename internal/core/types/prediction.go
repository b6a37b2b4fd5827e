package types

// Prediction is the result of classifying one image. Label is always one of the
// configured labels, there is no unknown class.
type Prediction struct {
	Label      string
	Index      int
	Confidence float32
	Scores     []float32
	Labels     []string
}

func (p Prediction) ScoreMap() map[string]float32 {
	scores := make(map[string]float32, len(p.Scores))
	for i, score := range p.Scores {
		if i < len(p.Labels) {
			scores[p.Labels[i]] = score
		}
	}
	return scores
}

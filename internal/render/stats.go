package render

// Range is the spread of one numeric series.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Sum  float64 `json:"sum,omitempty"`
}

// SampleStats summarizes a set of verbalized samples.
type SampleStats struct {
	Count           int     `json:"num_samples"`
	Probability     Range   `json:"probability"`
	TextLength      Range   `json:"text_length"`
	CreativityIndex float64 `json:"creativity_index"`
}

// Stats computes sample statistics from scratch. The creativity index is
// the mean inverse probability, so rarer samples push it up. Zero
// probabilities are skipped for the index.
func Stats(probabilities []float64, lengths []int) SampleStats {
	s := SampleStats{Count: len(probabilities)}
	if len(probabilities) > 0 {
		s.Probability = Range{Min: probabilities[0], Max: probabilities[0]}
		var inv float64
		var n int
		for _, p := range probabilities {
			s.Probability.Min = min(s.Probability.Min, p)
			s.Probability.Max = max(s.Probability.Max, p)
			s.Probability.Sum += p
			if p > 0 {
				inv += 1 / p
				n++
			}
		}
		s.Probability.Mean = s.Probability.Sum / float64(len(probabilities))
		if n > 0 {
			s.CreativityIndex = inv / float64(n)
		}
	}
	if len(lengths) > 0 {
		first := float64(lengths[0])
		s.TextLength = Range{Min: first, Max: first}
		var total float64
		for _, l := range lengths {
			f := float64(l)
			s.TextLength.Min = min(s.TextLength.Min, f)
			s.TextLength.Max = max(s.TextLength.Max, f)
			total += f
		}
		s.TextLength.Mean = total / float64(len(lengths))
	}
	return s
}

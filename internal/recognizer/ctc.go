package recognizer

import "math"

// DecodedSequence holds the result of CTC decoding for one sequence.
type DecodedSequence struct {
	Indices       []int     // per-timestep argmax indices
	Probs         []float64 // per-timestep probabilities of the argmax
	Collapsed     []int     // indices after CTC collapse (blanks and repeats removed)
	CollapsedProb []float64 // probabilities aligned with Collapsed
}

// argmax returns the index and value of the maximum element.
func argmax(values []float32) (int, float32) {
	if len(values) == 0 {
		return -1, 0
	}
	bestIdx := 0
	bestVal := values[0]
	for i, v := range values[1:] {
		if v > bestVal {
			bestVal = v
			bestIdx = i + 1
		}
	}
	return bestIdx, bestVal
}

// softmaxProbOfIndex computes the probability of the given index. When the
// row already looks like a probability distribution (sums to ~1, all values
// in [0,1]) the value is returned directly; otherwise a numerically stable
// softmax is applied.
func softmaxProbOfIndex(values []float32, index int) float64 {
	if index < 0 || index >= len(values) {
		return 0
	}

	sum := float64(0)
	problike := true
	for _, v := range values {
		if v < 0 || v > 1 {
			problike = false
			break
		}
		sum += float64(v)
	}
	if problike && math.Abs(sum-1.0) < 1e-3 {
		return float64(values[index])
	}

	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var denom float64
	for _, v := range values {
		denom += math.Exp(float64(v - maxVal))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(values[index]-maxVal)) / denom
}

// CTCCollapse removes blanks and collapses consecutive repeated indices.
func CTCCollapse(indices []int, probs []float64, blank int) ([]int, []float64) {
	collapsed := make([]int, 0, len(indices))
	collapsedProb := make([]float64, 0, len(indices))
	prev := -1
	for i, idx := range indices {
		if idx == blank {
			prev = -1
			continue
		}
		if idx == prev {
			continue
		}
		collapsed = append(collapsed, idx)
		collapsedProb = append(collapsedProb, probs[i])
		prev = idx
	}
	return collapsed, collapsedProb
}

// DecodeCTCGreedy decodes CTC logits of shape [N,T,C] (or [N,C,T] when
// classesFirst is true) by taking the argmax at each timestep and then
// collapsing. A trailing dimension of 1 is tolerated and ignored.
func DecodeCTCGreedy(logits []float32, shape []int64, blank int, classesFirst bool) []DecodedSequence {
	dims := make([]int64, 0, len(shape))
	for _, d := range shape {
		dims = append(dims, d)
	}
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) != 3 {
		return nil
	}

	n := int(dims[0])
	var t, c int
	if classesFirst {
		c = int(dims[1])
		t = int(dims[2])
	} else {
		t = int(dims[1])
		c = int(dims[2])
	}
	if n <= 0 || t <= 0 || c <= 0 || len(logits) < n*t*c {
		return nil
	}

	sequences := make([]DecodedSequence, 0, n)
	row := make([]float32, c)
	for seq := range n {
		base := seq * t * c
		indices := make([]int, t)
		probs := make([]float64, t)
		for step := range t {
			if classesFirst {
				for cls := range c {
					row[cls] = logits[base+cls*t+step]
				}
			} else {
				copy(row, logits[base+step*c:base+(step+1)*c])
			}
			idx, _ := argmax(row)
			indices[step] = idx
			probs[step] = softmaxProbOfIndex(row, idx)
		}
		collapsed, collapsedProb := CTCCollapse(indices, probs, blank)
		sequences = append(sequences, DecodedSequence{
			Indices:       indices,
			Probs:         probs,
			Collapsed:     collapsed,
			CollapsedProb: collapsedProb,
		})
	}
	return sequences
}

// SequenceConfidence is the mean probability over the collapsed sequence.
func SequenceConfidence(probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range probs {
		sum += p
	}
	return sum / float64(len(probs))
}

// determineClassesFirst guesses the layout of a CTC output tensor. When one
// of the two trailing dimensions matches the expected class count the
// answer is unambiguous; otherwise the larger dimension is assumed to be
// the class axis, since charsets are normally much bigger than the number
// of timesteps for a single text line.
func determineClassesFirst(shape []int64, classesGuess int) bool {
	dims := make([]int64, 0, len(shape))
	for _, d := range shape {
		dims = append(dims, d)
	}
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) != 3 {
		return false
	}
	d1, d2 := int(dims[1]), int(dims[2])
	if d1 == classesGuess && d2 != classesGuess {
		return true
	}
	if d2 == classesGuess && d1 != classesGuess {
		return false
	}
	return d1 > d2
}

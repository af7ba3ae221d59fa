package predictor

import "math"

// Geometry of the perceptron predictor. It ignores the configured widths.
const (
	// PerceptronIndexBits selects the row from the low pc bits.
	PerceptronIndexBits = 8
	// PerceptronWeights is the number of weights per row, bias included.
	PerceptronWeights = 31
)

const (
	weightMax = math.MaxInt8
	weightMin = math.MinInt8
)

// perceptronThreshold returns the training threshold for a row of the given
// number of weights: floor(1.93*h + 14) for h history weights.
func perceptronThreshold(weights int) int {
	return int(1.93*float64(weights-1) + 14)
}

// perceptron keeps one signed weight vector per pc bucket. The prediction is
// the sign of the bias plus the history weights, each added when its
// history bit is set and subtracted when it is clear.
type perceptron struct {
	rows      [][]int8
	ghr       uint32
	indexMask uint32
	// historyMask is the width the history register is kept at. It is one
	// bit wider than the window output reads.
	historyMask uint32
	threshold   int
}

func newPerceptron(indexBits uint, weights int) *perceptron {
	rows := make([][]int8, 1<<indexBits)
	for i := range rows {
		rows[i] = make([]int8, weights)
	}

	return &perceptron{
		rows:        rows,
		indexMask:   bitMask(indexBits),
		historyMask: bitMask(uint(weights)),
		threshold:   perceptronThreshold(weights),
	}
}

func (p *perceptron) row(pc uint32) []int8 {
	return p.rows[pc&p.indexMask]
}

// output computes the dot product of the row with the history in {-1,+1}
// form.
func (p *perceptron) output(weights []int8) int {
	y := int(weights[0])
	for i := 1; i < len(weights); i++ {
		if p.ghr>>(i-1)&1 == 1 {
			y += int(weights[i])
		} else {
			y -= int(weights[i])
		}
	}
	return y
}

func (p *perceptron) Predict(pc uint32) Outcome {
	return OutcomeOf(p.output(p.row(pc)) >= 0)
}

func (p *perceptron) Train(pc uint32, outcome Outcome) {
	weights := p.row(pc)
	y := p.output(weights)
	predicted := OutcomeOf(y >= 0)

	if predicted != outcome || abs(y) <= p.threshold {
		weights[0] = stepWeight(weights[0], outcome == Taken)
		for i := 1; i < len(weights); i++ {
			bit := Outcome(p.ghr >> (i - 1) & 1)
			weights[i] = stepWeight(weights[i], bit == outcome)
		}
	}

	p.ghr = shiftHistory(p.ghr, outcome, p.historyMask)
}

func (p *perceptron) Reset() {
	for _, row := range p.rows {
		for i := range row {
			row[i] = 0
		}
	}
	p.ghr = 0
}

// stepWeight moves w by one toward the sign given by up, saturating at the
// int8 range.
func stepWeight(w int8, up bool) int8 {
	v := int(w)
	if up {
		v++
	} else {
		v--
	}
	return int8(min(max(v, weightMin), weightMax))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package frontend

// PredictorConfig holds branch predictor configuration.
type PredictorConfig struct {
	// BHTSize is the number of branch history table entries. Must be a
	// power of 2.
	BHTSize uint32
	// BTBSize is the number of branch target buffer entries. Must be a
	// power of 2.
	BTBSize uint32
}

// DefaultPredictorConfig returns the default predictor geometry.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// PredictorStats holds branch predictor counters.
type PredictorStats struct {
	Predictions    uint64
	Correct        uint64
	Mispredictions uint64
	BTBHits        uint64
	BTBMisses      uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s PredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// Prediction is the predictor's answer for one fetch PC.
type Prediction struct {
	// Taken indicates the direction prediction.
	Taken bool
	// Target is the predicted target, meaningful when TargetKnown.
	Target      uint64
	TargetKnown bool
}

// Predictor is a bimodal direction predictor (2-bit saturating counters)
// with a direct-mapped branch target buffer. Counters start weakly
// taken.
type Predictor struct {
	bht []uint8

	btb      []btbEntry
	btbValid []bool

	bhtSize uint32
	btbSize uint32

	stats PredictorStats
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// NewPredictor creates a predictor with the given geometry.
func NewPredictor(config PredictorConfig) *Predictor {
	bhtSize := config.BHTSize
	btbSize := config.BTBSize
	if bhtSize == 0 {
		bhtSize = 1024
	}
	if btbSize == 0 {
		btbSize = 256
	}

	p := &Predictor{
		bht:      make([]uint8, bhtSize),
		btb:      make([]btbEntry, btbSize),
		btbValid: make([]bool, btbSize),
		bhtSize:  bhtSize,
		btbSize:  btbSize,
	}
	for i := range p.bht {
		p.bht[i] = 2
	}
	return p
}

func (p *Predictor) bhtIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(p.bhtSize-1))
}

func (p *Predictor) btbIndex(pc uint64) uint32 {
	return uint32((pc >> 2) & uint64(p.btbSize-1))
}

// Predict returns the direction and target prediction for pc.
func (p *Predictor) Predict(pc uint64) Prediction {
	pred := Prediction{}

	counter := p.bht[p.bhtIndex(pc)]
	pred.Taken = counter >= 2

	idx := p.btbIndex(pc)
	if p.btbValid[idx] && p.btb[idx].pc == pc {
		pred.Target = p.btb[idx].target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}

	p.stats.Predictions++
	return pred
}

// Update trains the predictor with a resolved branch outcome.
func (p *Predictor) Update(pc uint64, taken bool, target uint64) {
	idx := p.bhtIndex(pc)
	counter := p.bht[idx]

	if (counter >= 2) == taken {
		p.stats.Correct++
	} else {
		p.stats.Mispredictions++
	}

	if taken {
		if counter < 3 {
			p.bht[idx] = counter + 1
		}
	} else if counter > 0 {
		p.bht[idx] = counter - 1
	}

	if taken {
		btbIdx := p.btbIndex(pc)
		p.btb[btbIdx] = btbEntry{pc: pc, target: target}
		p.btbValid[btbIdx] = true
	}
}

// Stats returns predictor counters.
func (p *Predictor) Stats() PredictorStats {
	return p.stats
}

// Reset clears predictor state and statistics.
func (p *Predictor) Reset() {
	for i := range p.bht {
		p.bht[i] = 2
	}
	for i := range p.btbValid {
		p.btbValid[i] = false
	}
	p.stats = PredictorStats{}
}

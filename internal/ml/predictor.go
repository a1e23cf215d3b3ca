package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/analyzers"
	"github.com/web3guy0/pumpwatch/internal/brain"
)

// MinTrainingSamples gates the classifier: below this it is not consulted
const MinTrainingSamples = 20

// FeatureNames lists the model inputs in vector order
var FeatureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := []string{"pump_pct", "combined_score"}
	names = append(names, analyzers.Names...)
	return append(names, "pump_speed_min", "hour_of_day")
}

// Features extracts the model vector from a signal row
func Features(r *brain.SignalRecord) []float64 {
	out := make([]float64, 0, len(FeatureNames))
	out = append(out, r.PumpPct, r.CombinedScore)
	out = append(out, r.AnalyzerScores()...)
	return append(out, r.PumpSpeedMin, float64(r.HourOfDay()))
}

// Confidence labels by training-set size
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// PredictionResult is the classifier's verdict for one feature vector
type PredictionResult struct {
	Probability          float64
	Prediction           int // 1 win, 0 loss
	Confidence           string
	FeatureContributions map[string]float64
}

// model is the persisted difference-of-means state. Each feature gets a
// weight (win mean minus loss mean) and a threshold (midpoint); the score
// is a sigmoid over the weighted distances from the thresholds.
type model struct {
	Weights    []float64 `json:"weights"`
	Thresholds []float64 `json:"thresholds"`
	Samples    int       `json:"samples"`
	Wins       int       `json:"wins"`
	TrainedAt  time.Time `json:"trained_at"`
}

// Predictor trains on finalized signal rows and scores new setups
type Predictor struct {
	path string

	mu sync.RWMutex
	m  *model
}

// New loads a previously trained model from path when one exists
func New(path string) *Predictor {
	p := &Predictor{path: path}
	if path == "" {
		return p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Could not load model")
		}
		return p
	}

	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Corrupt model file, starting fresh")
		return p
	}
	if len(m.Weights) != len(FeatureNames) {
		log.Warn().Str("path", path).Msg("Model feature set changed, starting fresh")
		return p
	}

	p.m = &m
	log.Info().Int("samples", m.Samples).Time("trained_at", m.TrainedAt).Msg("🤖 Model loaded")
	return p
}

// Trained reports whether the model has enough history to be consulted
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m != nil && p.m.Samples >= MinTrainingSamples
}

// Samples returns the size of the last training set
func (p *Predictor) Samples() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.m == nil {
		return 0
	}
	return p.m.Samples
}

// Train fits the model on finalized rows. Rows without both a win and a
// loss example are not separable and leave the model untouched.
func (p *Predictor) Train(rows []brain.SignalRecord) error {
	if len(rows) < MinTrainingSamples {
		return fmt.Errorf("ml: need %d samples, have %d", MinTrainingSamples, len(rows))
	}

	n := len(FeatureNames)
	winSums := make([]float64, n)
	lossSums := make([]float64, n)
	var wins, losses int

	for i := range rows {
		feats := Features(&rows[i])
		if rows[i].IsWin() {
			wins++
			for j, f := range feats {
				winSums[j] += f
			}
		} else {
			losses++
			for j, f := range feats {
				lossSums[j] += f
			}
		}
	}
	if wins == 0 || losses == 0 {
		return errors.New("ml: training set needs both outcomes")
	}

	m := &model{
		Weights:    make([]float64, n),
		Thresholds: make([]float64, n),
		Samples:    len(rows),
		Wins:       wins,
		TrainedAt:  time.Now().UTC(),
	}
	for j := 0; j < n; j++ {
		winMean := winSums[j] / float64(wins)
		lossMean := lossSums[j] / float64(losses)
		m.Weights[j] = winMean - lossMean
		m.Thresholds[j] = (winMean + lossMean) / 2
	}

	p.mu.Lock()
	p.m = m
	p.mu.Unlock()

	log.Info().Int("samples", m.Samples).Int("wins", wins).Int("losses", losses).Msg("🤖 Model retrained")
	return p.save(m)
}

// Predict scores one feature vector. Callers must check Trained first;
// an untrained model returns a neutral verdict.
func (p *Predictor) Predict(features []float64) PredictionResult {
	p.mu.RLock()
	m := p.m
	p.mu.RUnlock()

	res := PredictionResult{
		Probability:          0.5,
		Confidence:           ConfidenceLow,
		FeatureContributions: make(map[string]float64, len(FeatureNames)),
	}
	if m == nil || len(features) != len(m.Weights) {
		return res
	}

	var sum float64
	for j, f := range features {
		contrib := (f - m.Thresholds[j]) * m.Weights[j] * 0.1
		res.FeatureContributions[FeatureNames[j]] = contrib
		sum += contrib
	}

	res.Probability = sigmoid(sum)
	if res.Probability >= 0.5 {
		res.Prediction = 1
	}
	switch {
	case m.Samples >= 50:
		res.Confidence = ConfidenceHigh
	case m.Samples >= 20:
		res.Confidence = ConfidenceMedium
	}
	return res
}

// PredictRecord scores a signal row directly
func (p *Predictor) PredictRecord(r *brain.SignalRecord) PredictionResult {
	return p.Predict(Features(r))
}

func (p *Predictor) save(m *model) error {
	if p.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0644)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

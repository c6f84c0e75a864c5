// internal/predict/model.go
package predict

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitryikh/leaves"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// Model gates trade signals with a trained LightGBM binary classifier.
// The model file is a LightGBM text dump; the feature file is the ordered
// JSON list of feature names saved at training time.
type Model struct {
	ensemble  *leaves.Ensemble
	features  []string
	threshold float64
	logger    *zap.Logger
}

// Load reads the model and its feature list from disk.
func Load(modelPath, featuresPath string, threshold float64, logger *zap.Logger) (*Model, error) {
	ensemble, err := leaves.LGEnsembleFromFile(modelPath, true)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	data, err := os.ReadFile(featuresPath)
	if err != nil {
		return nil, fmt.Errorf("read feature list %s: %w", featuresPath, err)
	}
	var features []string
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, fmt.Errorf("parse feature list %s: %w", featuresPath, err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature list %s is empty", featuresPath)
	}
	if got := ensemble.NFeatures(); got != len(features) {
		return nil, fmt.Errorf("model expects %d features, feature list has %d", got, len(features))
	}

	logger.Info("Model loaded",
		zap.String("path", modelPath),
		zap.Int("trees", ensemble.NEstimators()),
		zap.Int("features", len(features)))

	return &Model{
		ensemble:  ensemble,
		features:  features,
		threshold: threshold,
		logger:    logger.Named("model"),
	}, nil
}

// Features returns the ordered feature names the model expects.
func (m *Model) Features() []string {
	return m.features
}

// Evaluate scores one candidate signal. It returns the predicted
// probability of a profitable reversion and whether it clears the
// configured threshold. An incomplete feature row is an error.
func (m *Model) Evaluate(row candle.Row, upperBreak bool) (float64, bool, error) {
	vector, err := Vector(row, upperBreak, m.features)
	if err != nil {
		return 0, false, err
	}

	// Loaded with its output transformation, the ensemble yields the
	// positive-class probability directly.
	probability := m.ensemble.PredictSingle(vector, 0)

	m.logger.Debug("Model evaluated",
		zap.Time("candle", row.Time),
		zap.Bool("upper_break", upperBreak),
		zap.Float64("probability", probability))

	return probability, probability > m.threshold, nil
}

package metric

import (
	"context"
	"fmt"
)

// Model is the opaque thing under evaluation. The pipeline never inspects
// it; metrics that need predictions go through Predictions.
type Model any

// Predictor is a model exposing a predict capability.
type Predictor interface {
	Predict(ctx context.Context, ds *Dataset) ([]float64, error)
}

// PredictorFunc adapts a plain function (a directly callable model).
type PredictorFunc func(ctx context.Context, ds *Dataset) ([]float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, ds *Dataset) ([]float64, error) {
	return f(ctx, ds)
}

// ParameterCounter is implemented by models that can report their size.
type ParameterCounter interface {
	ParameterCount() int64
}

// Predictions returns the dataset's predictions when present, otherwise asks
// the model. A missing source is an error, never a synthetic fallback.
func Predictions(ctx context.Context, model Model, ds *Dataset) ([]float64, error) {
	if ds.Has(FieldPredictions) {
		return ds.Predictions, nil
	}
	var p Predictor
	switch m := model.(type) {
	case Predictor:
		p = m
	case func(context.Context, *Dataset) ([]float64, error):
		p = PredictorFunc(m)
	default:
		return nil, fmt.Errorf("%w: %s (model %T cannot predict)", ErrMissingField, FieldPredictions, model)
	}
	preds, err := p.Predict(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("model predict: %w", err)
	}
	if n := ds.Len(); n > 0 && len(preds) != n {
		return nil, fmt.Errorf("%w: model returned %d predictions for %d samples", ErrInvalidDataset, len(preds), n)
	}
	return preds, nil
}

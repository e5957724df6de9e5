package codec

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// #region dataset-encoding
// EncodeDataset converts a dataset to its wire form. Absent fields are
// omitted.
func EncodeDataset(ds *metric.Dataset) (*structpb.Struct, error) {
	fields := map[string]any{"samples": float64(ds.Len())}
	if ds.Has(metric.FieldPredictions) {
		fields[metric.FieldPredictions] = floatsToList(ds.Predictions)
	}
	if ds.Has(metric.FieldLabels) {
		fields[metric.FieldLabels] = floatsToList(ds.Labels)
	}
	if ds.Has(metric.FieldGroups) {
		groups := make([]any, len(ds.Groups))
		for i, g := range ds.Groups {
			groups[i] = string(g)
		}
		fields[metric.FieldGroups] = groups
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return s, nil
}

// DecodeDataset reads the wire form back into a validated dataset. Numeric
// group ids are accepted and rendered as integers where exact.
func DecodeDataset(s *structpb.Struct) (*metric.Dataset, error) {
	ds := &metric.Dataset{}
	fields := s.GetFields()
	var err error
	if v, ok := fields[metric.FieldPredictions]; ok {
		if ds.Predictions, err = listToFloats(metric.FieldPredictions, v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[metric.FieldLabels]; ok {
		if ds.Labels, err = listToFloats(metric.FieldLabels, v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[metric.FieldGroups]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("%w: groups must be a list", metric.ErrInvalidDataset)
		}
		for i, item := range list.GetValues() {
			switch k := item.GetKind().(type) {
			case *structpb.Value_StringValue:
				ds.Groups = append(ds.Groups, metric.GroupID(k.StringValue))
			case *structpb.Value_NumberValue:
				ds.Groups = append(ds.Groups, metric.GroupID(formatNumber(k.NumberValue)))
			default:
				return nil, fmt.Errorf("%w: groups[%d] must be a string or number", metric.ErrInvalidDataset, i)
			}
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// #endregion dataset-encoding

// #region helpers
func floatsToList(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func listToFloats(name string, v *structpb.Value) ([]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s must be a list of numbers", metric.ErrInvalidDataset, name)
	}
	out := make([]float64, len(list.GetValues()))
	for i, item := range list.GetValues() {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a number", metric.ErrInvalidDataset, name, i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// #endregion helpers

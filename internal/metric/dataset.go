package metric

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Dataset field names.
const (
	FieldPredictions = "predictions"
	FieldLabels      = "labels"
	FieldGroups      = "groups"
)

// #region group-id

// GroupID identifies a demographic group. It decodes from JSON numbers and
// strings alike so integer-coded and categorical groups share one type.
type GroupID string

// UnmarshalJSON accepts "a", 1 or 1.0.
func (g *GroupID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*g = GroupID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("group id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*g = GroupID(strconv.FormatInt(i, 10))
		return nil
	}
	*g = GroupID(n.String())
	return nil
}

// #endregion group-id

// #region dataset

// Dataset is the typed evaluation input: three index-aligned sequences.
// Any of them may be absent; metrics declare what they need via Require.
type Dataset struct {
	Predictions []float64 `json:"predictions,omitempty"`
	Labels      []float64 `json:"labels,omitempty"`
	Groups      []GroupID `json:"groups,omitempty"`
}

// Len returns the sample count of the longest present field.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return max(len(d.Predictions), len(d.Labels), len(d.Groups))
}

// Validate checks that every present field has the same length.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}
	n := d.Len()
	for _, f := range []struct {
		name string
		size int
	}{
		{FieldPredictions, len(d.Predictions)},
		{FieldLabels, len(d.Labels)},
		{FieldGroups, len(d.Groups)},
	} {
		if f.size != 0 && f.size != n {
			return fmt.Errorf("%w: %s has %d entries, expected %d", ErrInvalidDataset, f.name, f.size, n)
		}
	}
	return nil
}

// Has reports whether a named field is present and non-empty.
func (d *Dataset) Has(field string) bool {
	if d == nil {
		return false
	}
	switch field {
	case FieldPredictions:
		return len(d.Predictions) > 0
	case FieldLabels:
		return len(d.Labels) > 0
	case FieldGroups:
		return len(d.Groups) > 0
	}
	return false
}

// Require fails with ErrMissingField on the first absent field.
func (d *Dataset) Require(fields ...string) error {
	if err := d.Validate(); err != nil {
		return err
	}
	for _, f := range fields {
		if !d.Has(f) {
			return fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}
	return nil
}

// GroupIndex returns the distinct groups in sorted order and the sample
// indices belonging to each.
func (d *Dataset) GroupIndex() ([]GroupID, map[GroupID][]int) {
	index := make(map[GroupID][]int)
	for i, g := range d.Groups {
		index[g] = append(index[g], i)
	}
	keys := make([]GroupID, 0, len(index))
	for g := range index {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, index
}

// #endregion dataset

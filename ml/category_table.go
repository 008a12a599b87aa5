package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// OrderSorted is the only ordering the encoder produces: codes follow the
// lexical order of the distinct training values.
const OrderSorted = "sorted"

// CategoryTable is a bidirectional string <-> code map. Misses are errors in
// both directions.
type CategoryTable struct {
	field  string
	order  string
	values []string
	codes  map[string]int
}

type categoryTableJSON struct {
	Field  string   `json:"field"`
	Order  string   `json:"order"`
	Values []string `json:"values"`
}

// NewCategoryTable builds a table from the distinct entries of values, in
// sorted order.
func NewCategoryTable(field string, values []string) (CategoryTable, error) {
	seen := make(map[string]struct{}, len(values))
	distinct := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)
	return newCategoryTable(field, OrderSorted, distinct)
}

func newCategoryTable(field, order string, values []string) (CategoryTable, error) {
	if len(values) == 0 {
		return CategoryTable{}, fmt.Errorf("%s: category table is empty", field)
	}
	if order != OrderSorted {
		return CategoryTable{}, fmt.Errorf("%s: unsupported category order %q", field, order)
	}
	if !sort.StringsAreSorted(values) {
		return CategoryTable{}, fmt.Errorf("%s: category values are not sorted", field)
	}
	codes := make(map[string]int, len(values))
	for i, v := range values {
		if _, dup := codes[v]; dup {
			return CategoryTable{}, fmt.Errorf("%s: duplicate category %q", field, v)
		}
		codes[v] = i
	}
	return CategoryTable{
		field:  field,
		order:  order,
		values: append([]string(nil), values...),
		codes:  codes,
	}, nil
}

func (t CategoryTable) Encode(value string) (int, error) {
	code, ok := t.codes[value]
	if !ok {
		return 0, &UnseenCategoryError{Field: t.field, Value: value}
	}
	return code, nil
}

func (t CategoryTable) Decode(code int) (string, error) {
	if code < 0 || code >= len(t.values) {
		return "", &UnknownCodeError{Field: t.field, Code: code}
	}
	return t.values[code], nil
}

func (t CategoryTable) Len() int { return len(t.values) }

func (t CategoryTable) Field() string { return t.field }

// Values returns a copy of the table in code order.
func (t CategoryTable) Values() []string {
	return append([]string(nil), t.values...)
}

func (t CategoryTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(categoryTableJSON{Field: t.field, Order: t.order, Values: t.values})
}

func (t *CategoryTable) UnmarshalJSON(data []byte) error {
	var raw categoryTableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Field == "" {
		return errors.New("category table without field name")
	}
	table, err := newCategoryTable(raw.Field, raw.Order, raw.Values)
	if err != nil {
		return err
	}
	*t = table
	return nil
}

// Package clean interprets the column cleaning rule document.
package clean

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/helper"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	om "github.com/cevaris/ordered_map"
	"github.com/goccy/go-json"
)

// Rule document keys.
const (
	keyColumnRules        = "column_rules"
	keyReplaceExactValues = "replace_exact_values"
	keyTrimAfterComma     = "trim_after_comma"
	keyRemoveCharacters   = "remove_characters"
	keyToUppercase        = "to_uppercase"
	keySwitchColumnValue  = "switch_column_value"
	datatypeInt           = "int"
)

// Rule is one cleaning step for a column.
// The set of rules is closed: ReplaceExactValues, TrimAfterComma, RemoveCharacters, ToUppercase and SwitchColumnValue.
type Rule interface {
	Kind() string
}

// Replacement maps every cell equal to one of Old to New.
type Replacement struct {
	New string
	Old []string
}

type ReplaceExactValues struct {
	Replacements []Replacement
}

type TrimAfterComma struct{}

type RemoveCharacters struct {
	Substrings []string
}

type ToUppercase struct{}

// RegionMapping is one entry of a region map.
type RegionMapping struct {
	Key   string
	Value string
}

// SwitchColumnValue copies values from FromColumn to ToColumn.
// With Datatype "int" integer literals are copied. With a RegionMap, a from value equal to a Key becomes
// the Value and the Key is copied to ToColumn.
type SwitchColumnValue struct {
	FromColumn string          `json:"from_column" validate:"required" errorTxt:"from_column"`
	ToColumn   string          `json:"to_column" validate:"required" errorTxt:"to_column"`
	Datatype   string          `json:"datatype" validate:"omitempty,oneof=int" errorTxt:"datatype"`
	RegionMap  []RegionMapping `json:"-" validate:"required_without=Datatype" errorTxt:"region_map"`
}

func (ReplaceExactValues) Kind() string { return keyReplaceExactValues }
func (TrimAfterComma) Kind() string     { return keyTrimAfterComma }
func (RemoveCharacters) Kind() string   { return keyRemoveCharacters }
func (ToUppercase) Kind() string        { return keyToUppercase }
func (SwitchColumnValue) Kind() string  { return keySwitchColumnValue }

// ruleOrder is the fixed order rules are applied to a column, whatever order the document lists them in.
var ruleOrder = []string{keyReplaceExactValues, keyTrimAfterComma, keyRemoveCharacters, keyToUppercase, keySwitchColumnValue}

// ColumnRules holds the rules of one column in application order.
type ColumnRules struct {
	Column string
	Rules  []Rule
}

// RuleSet is the parsed rule document. Columns keep the order of the document.
type RuleSet struct {
	Columns []ColumnRules
}

// Parse decodes a rule document.
// Unknown rule keys are logged and ignored; structural problems are errors.
func Parse(log logger.Logger, doc []byte) (*RuleSet, error) {
	top, err := decodeObject(doc)
	if err != nil {
		return nil, fmt.Errorf("rule document is not a JSON object: %w", err)
	}
	raw, ok := top.Get(keyColumnRules)
	if !ok {
		return nil, fmt.Errorf("rule document has no %q key", keyColumnRules)
	}
	columns, err := decodeObject(raw.(json.RawMessage))
	if err != nil {
		return nil, fmt.Errorf("%q must be an object keyed by column name: %w", keyColumnRules, err)
	}
	rs := &RuleSet{}
	iter := columns.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		column := kv.Key.(string)
		cr, err := parseColumn(log, column, kv.Value.(json.RawMessage))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		rs.Columns = append(rs.Columns, cr)
	}
	return rs, nil
}

func parseColumn(log logger.Logger, column string, raw json.RawMessage) (ColumnRules, error) {
	cr := ColumnRules{Column: column}
	obj, err := decodeObject(raw)
	if err != nil {
		return cr, fmt.Errorf("rules must be an object: %w", err)
	}
	// Warn about keys we don't understand.
	known := helper.StringSliceToOrderedMap(ruleOrder)
	iter := obj.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		if _, isKnown := known.Get(kv.Key); !isKnown {
			log.Warn("ignoring unknown cleaning rule ", kv.Key, " for column ", column)
		}
	}
	for _, key := range ruleOrder {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		value := v.(json.RawMessage)
		var r Rule
		switch key {
		case keyReplaceExactValues:
			r, err = parseReplaceExactValues(value)
		case keyTrimAfterComma:
			if flagIsSet(value) {
				r = TrimAfterComma{}
			}
		case keyRemoveCharacters:
			r, err = parseRemoveCharacters(value)
		case keyToUppercase:
			if flagIsSet(value) {
				r = ToUppercase{}
			}
		case keySwitchColumnValue:
			r, err = parseSwitchColumnValue(value)
		}
		if err != nil {
			return cr, fmt.Errorf("%v: %w", key, err)
		}
		if r != nil {
			cr.Rules = append(cr.Rules, r)
		}
	}
	return cr, nil
}

// flagIsSet treats any value except false and null as set.
func flagIsSet(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "false" && v != "null"
}

func parseReplaceExactValues(raw json.RawMessage) (Rule, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	r := ReplaceExactValues{}
	iter := obj.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		old, err := decodeStringOrList(kv.Value.(json.RawMessage))
		if err != nil {
			return nil, fmt.Errorf("replacement %q: %w", kv.Key, err)
		}
		r.Replacements = append(r.Replacements, Replacement{New: kv.Key.(string), Old: old})
	}
	return r, nil
}

func parseRemoveCharacters(raw json.RawMessage) (Rule, error) {
	s, err := decodeStringOrList(raw)
	if err != nil {
		return nil, err
	}
	return RemoveCharacters{Substrings: s}, nil
}

func parseSwitchColumnValue(raw json.RawMessage) (Rule, error) {
	r := SwitchColumnValue{}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if v, ok := obj.Get("region_map"); ok {
		regions, err := decodeObject(v.(json.RawMessage))
		if err != nil {
			return nil, fmt.Errorf("region_map: %w", err)
		}
		iter := regions.IterFunc()
		for kv, ok := iter(); ok; kv, ok = iter() {
			var value string
			if err := json.Unmarshal(kv.Value.(json.RawMessage), &value); err != nil {
				return nil, fmt.Errorf("region_map %q: %w", kv.Key, err)
			}
			r.RegionMap = append(r.RegionMap, RegionMapping{Key: kv.Key.(string), Value: value})
		}
	}
	if err := helper.ValidateStruct(r); err != nil {
		return nil, err
	}
	if r.Datatype != "" && len(r.RegionMap) > 0 {
		return nil, fmt.Errorf("set one of datatype or region_map, not both")
	}
	return r, nil
}

func decodeStringOrList(raw json.RawMessage) ([]string, error) {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("expected a string or a list of strings")
	}
	return many, nil
}

// decodeObject reads a JSON object into an ordered map of key to json.RawMessage, keeping document order.
func decodeObject(raw []byte) (*om.OrderedMap, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	retval := om.NewOrderedMap()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err = dec.Decode(&value); err != nil {
			return nil, err
		}
		retval.Set(key, value)
	}
	if _, err = dec.Token(); err != nil { // closing brace.
		return nil, err
	}
	return retval, nil
}

package clean

import (
	"fmt"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/helper"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
)

// Apply runs every column's rules against t in document order.
// A rule that names a column missing from t is an error and nothing further is applied.
func Apply(log logger.Logger, rs *RuleSet, t *record.Table) error {
	if err := rs.checkColumns(t); err != nil {
		return err
	}
	for _, cr := range rs.Columns {
		for _, r := range cr.Rules {
			n := apply(t, cr.Column, r)
			log.Debug("cleaning rule ", r.Kind(), " on column ", cr.Column, " changed ", n, " cells")
		}
	}
	return nil
}

func (rs *RuleSet) checkColumns(t *record.Table) error {
	for _, cr := range rs.Columns {
		if !t.HasColumn(cr.Column) {
			return fmt.Errorf("cleaning rule names column %q which is not in table %q", cr.Column, t.Name)
		}
		for _, r := range cr.Rules {
			if s, ok := r.(SwitchColumnValue); ok {
				for _, c := range []string{s.FromColumn, s.ToColumn} {
					if !t.HasColumn(c) {
						return fmt.Errorf("cleaning rule %v on column %q names column %q which is not in table %q", s.Kind(), cr.Column, c, t.Name)
					}
				}
			}
		}
	}
	return nil
}

// apply dispatches one rule and returns the number of cells it changed.
func apply(t *record.Table, column string, r Rule) int {
	switch rule := r.(type) {
	case ReplaceExactValues:
		return mapStrings(t, column, func(s string) interface{} {
			for _, rep := range rule.Replacements {
				for _, old := range rep.Old {
					if s == old {
						s = rep.New
						break
					}
				}
			}
			return s
		})
	case TrimAfterComma:
		return mapStrings(t, column, func(s string) interface{} {
			if s = strings.SplitN(s, ",", 2)[0]; s == "" {
				return nil
			}
			return s
		})
	case RemoveCharacters:
		return mapStrings(t, column, func(s string) interface{} {
			for _, sub := range rule.Substrings {
				if sub != "" {
					s = strings.Replace(s, sub, "", -1)
				}
			}
			if s == "" {
				return nil
			}
			if strings.TrimSpace(s) == "" {
				return " "
			}
			return s
		})
	case ToUppercase:
		return mapStrings(t, column, func(s string) interface{} {
			return strings.ToUpper(s)
		})
	case SwitchColumnValue:
		return switchColumnValue(t, rule)
	}
	panic(fmt.Sprintf("unsupported cleaning rule %T", r))
}

// mapStrings replaces each string cell in column with f(cell). Other values are left alone.
func mapStrings(t *record.Table, column string, f func(string) interface{}) int {
	changed := 0
	for i := range t.Rows {
		s, ok := t.Get(i, column).(string)
		if !ok {
			continue
		}
		v := f(s)
		if vs, isString := v.(string); !isString || vs != s {
			t.Set(i, column, v)
			changed++
		}
	}
	return changed
}

func switchColumnValue(t *record.Table, rule SwitchColumnValue) int {
	changed := 0
	for i := range t.Rows {
		from, ok := t.Get(i, rule.FromColumn).(string)
		if !ok {
			continue
		}
		if rule.Datatype == datatypeInt {
			if helper.IsIntegerLiteral(from) {
				t.Set(i, rule.ToColumn, from)
				changed++
			}
			continue
		}
		for _, m := range rule.RegionMap {
			if from == m.Key {
				t.Set(i, rule.FromColumn, m.Value)
				t.Set(i, rule.ToColumn, m.Key)
				changed++
				break
			}
		}
	}
	return changed
}

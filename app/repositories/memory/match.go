package memory

import (
	"bytes"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toMap(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// matches evaluates the filter subset the services use: equality (with
// array membership), $eq, $ne, $gt, $gte, $lt, $lte, $in on dotted paths, and
// $text as a case-insensitive substring search over textFields.
func matches(doc bson.M, filter bson.M, textFields []string) bool {
	for key, cond := range filter {
		if key == "$text" {
			term := ""
			if spec, ok := cond.(bson.M); ok {
				term, _ = spec["$search"].(string)
			}
			if !textMatch(doc, term, textFields) {
				return false
			}
			continue
		}

		val := lookup(doc, key)
		ops, isOps := cond.(bson.M)
		if !isOps {
			if !equalOrContains(val, cond) {
				return false
			}
			continue
		}
		for op, arg := range ops {
			if !apply(op, val, arg) {
				return false
			}
		}
	}
	return true
}

func apply(op string, val, arg interface{}) bool {
	switch op {
	case "$eq":
		return equalOrContains(val, arg)
	case "$ne":
		return !equalOrContains(val, arg)
	case "$gt":
		return val != nil && compare(val, arg) > 0
	case "$gte":
		return val != nil && compare(val, arg) >= 0
	case "$lt":
		return val != nil && compare(val, arg) < 0
	case "$lte":
		return val != nil && compare(val, arg) <= 0
	case "$in":
		for _, candidate := range toSlice(arg) {
			if equalOrContains(val, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

func textMatch(doc bson.M, term string, fields []string) bool {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return false
	}
	var hay strings.Builder
	for _, f := range fields {
		switch v := lookup(doc, f).(type) {
		case string:
			hay.WriteString(strings.ToLower(v) + " ")
		case bson.A:
			for _, el := range v {
				if s, ok := el.(string); ok {
					hay.WriteString(strings.ToLower(s) + " ")
				}
			}
		}
	}
	text := hay.String()
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// lookup resolves a dotted path.
func lookup(doc bson.M, path string) interface{} {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case bson.M:
			cur = c[part]
		case bson.D:
			cur = c.Map()[part]
		default:
			return nil
		}
	}
	return cur
}

func toSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case []interface{}:
		return s
	case bson.A:
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []interface{}{v}
}

func equalOrContains(val, want interface{}) bool {
	if arr, ok := val.(bson.A); ok {
		for _, el := range arr {
			if compare(el, want) == 0 {
				return true
			}
		}
		return false
	}
	if val == nil || want == nil {
		return val == nil && want == nil
	}
	return compare(val, want) == 0
}

// compare orders two scalar BSON values. Values of unrelated types compare
// by type name so sorting stays total.
func compare(a, b interface{}) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := instant(a); ok {
		if tb, ok := instant(b); ok {
			return ta.Compare(tb)
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(x[:], y[:])
		}
	}
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return strings.Compare(reflect.TypeOf(a).String(), reflect.TypeOf(b).String())
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func instant(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

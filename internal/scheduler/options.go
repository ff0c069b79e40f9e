package scheduler

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindFlag ValueKind = iota
	KindText
	KindNumber
)

func (k ValueKind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is an option value: a boolean flag, free text, or a number.
// The zero Value is Flag(false).
type Value struct {
	kind    ValueKind
	flag    bool
	text    string
	num     float64
	integer bool
	n       int64
}

// Flag returns a boolean flag value. Flag(false) is never emitted.
func Flag(on bool) Value { return Value{kind: KindFlag, flag: on} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Int returns an integral number value.
func Int(n int64) Value { return Value{kind: KindNumber, num: float64(n), integer: true, n: n} }

// Float returns a number value. Whole floats render with a ".0" fraction.
func Float(f float64) Value { return Value{kind: KindNumber, num: f} }

// Duration returns a Text value in Slurm time format ([D-]HH:MM:SS).
func Duration(d time.Duration) Value { return Text(FormatTimeSpec(d)) }

func (v Value) Kind() ValueKind { return v.kind }

// Enabled reports whether a flag value is set. Non-flag values are always enabled.
func (v Value) Enabled() bool {
	if v.kind == KindFlag {
		return v.flag
	}
	return true
}

// String renders the value as it appears after "=" on the command line.
func (v Value) String() string {
	switch v.kind {
	case KindFlag:
		return strconv.FormatBool(v.flag)
	case KindText:
		return v.text
	case KindNumber:
		if v.integer {
			return strconv.FormatInt(v.n, 10)
		}
		s := strconv.FormatFloat(v.num, 'f', -1, 64)
		if !strings.Contains(s, ".") && !math.IsInf(v.num, 0) && !math.IsNaN(v.num) {
			s += ".0"
		}
		return s
	}
	return ""
}

// Option is one named option.
type Option struct {
	Key   string
	Value Value
}

// OptionMap is an ordered set of options. Keys that normalise to the same
// flag name refer to the same entry.
type OptionMap []Option

// NormalizeKey trims whitespace and replaces underscores with dashes.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "_", "-")
}

func (m OptionMap) index(key string) int {
	norm := NormalizeKey(key)
	for i, opt := range m {
		if NormalizeKey(opt.Key) == norm {
			return i
		}
	}
	return -1
}

// Set adds or replaces an option. A replaced option keeps its position.
func (m *OptionMap) Set(key string, v Value) {
	if i := m.index(key); i >= 0 {
		(*m)[i].Value = v
		return
	}
	*m = append(*m, Option{Key: key, Value: v})
}

// Get looks up an option by key.
func (m OptionMap) Get(key string) (Value, bool) {
	if i := m.index(key); i >= 0 {
		return m[i].Value, true
	}
	return Value{}, false
}

// Delete removes an option if present.
func (m *OptionMap) Delete(key string) {
	if i := m.index(key); i >= 0 {
		*m = slices.Delete(*m, i, i+1)
	}
}

// Merge returns a new map with other's options layered over m's.
func (m OptionMap) Merge(other OptionMap) OptionMap {
	out := slices.Clone(m)
	for _, opt := range other {
		out.Set(opt.Key, opt.Value)
	}
	return out
}

// EncodeFlags converts options to command-line tokens, preserving order.
//
//	Flag(true)  -> --key
//	Flag(false) -> (nothing)
//	other       -> --key=value
func EncodeFlags(m OptionMap) []string {
	tokens := make([]string, 0, len(m))
	for _, opt := range m {
		key := NormalizeKey(opt.Key)
		switch opt.Value.kind {
		case KindFlag:
			if opt.Value.flag {
				tokens = append(tokens, "--"+key)
			}
		default:
			tokens = append(tokens, "--"+key+"="+opt.Value.String())
		}
	}
	return tokens
}

// DecodeFlags is the inverse of EncodeFlags. Tokens that are not long
// options are skipped. Values are typed by parseScalar.
func DecodeFlags(tokens []string) OptionMap {
	var m OptionMap
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, "--") || len(tok) == 2 {
			continue
		}
		key, value, hasValue := strings.Cut(tok[2:], "=")
		if !hasValue {
			m.Set(key, Flag(true))
			continue
		}
		m.Set(key, parseScalar(value))
	}
	return m
}

// parseScalar types raw text as an integer, a float, or text.
func parseScalar(s string) Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Float(f)
	}
	return Text(s)
}

// ParseOption parses "key", "key=value", "key=true" or "key=false".
// A leading "--" is accepted.
func ParseOption(raw string) (Option, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "--")
	key, value, hasValue := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return Option{}, fmt.Errorf("%w: %q has no key", ErrInvalidOption, raw)
	}
	if !hasValue {
		return Option{Key: key, Value: Flag(true)}, nil
	}
	switch strings.ToLower(value) {
	case "true":
		return Option{Key: key, Value: Flag(true)}, nil
	case "false":
		return Option{Key: key, Value: Flag(false)}, nil
	}
	return Option{Key: key, Value: parseScalar(value)}, nil
}

// ParseOptions parses every entry with ParseOption. Later duplicates win.
func ParseOptions(raw []string) (OptionMap, error) {
	var m OptionMap
	for _, r := range raw {
		opt, err := ParseOption(r)
		if err != nil {
			return nil, err
		}
		m.Set(opt.Key, opt.Value)
	}
	return m, nil
}

// OptionsFromMap converts a loosely typed map (as decoded from YAML) into an
// OptionMap sorted by key.
func OptionsFromMap(raw map[string]any) (OptionMap, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var m OptionMap
	for _, k := range keys {
		v, err := valueOf(raw[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOption, k, err)
		}
		m.Set(k, v)
	}
	return m, nil
}

func uintValue(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return Value{}, fmt.Errorf("%d overflows int64", v)
	}
	return Int(int64(v)), nil
}

func valueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		return v, nil
	case bool:
		return Flag(v), nil
	case string:
		return Text(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint64:
		return uintValue(v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case time.Duration:
		return Duration(v), nil
	case nil:
		return Value{}, fmt.Errorf("missing value")
	}
	return Value{}, fmt.Errorf("unsupported type %T", raw)
}

// Package resolve classifies a plain YAML scalar's bytes the way the
// expression bridge's push_scalar needs: null, bool, int, float, or string,
// in that order, with no other YAML 1.1 tag resolution (no timestamps, no
// merge keys, no binary) — those are out of scope for this engine.
//
// Adapted from the teacher's YAML-1.1 resolution table (originally also
// handling !!timestamp, !!merge and !!binary); trimmed to the five scalar
// kinds the expression bridge's value universe distinguishes.
package resolve

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// PlainKind is the recognized kind of a plain YAML scalar.
type PlainKind int

const (
	KindString PlainKind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
)

type tableEntry struct {
	kind  PlainKind
	value interface{}
}

var (
	resolveTable = make([]byte, 256)
	literalMap   = make(map[string]tableEntry)

	initOnce sync.Once
)

func initTable() {
	t := resolveTable
	t[int('+')] = 'S'
	t[int('-')] = 'S'
	for _, c := range "0123456789" {
		t[int(c)] = 'D'
	}
	for _, c := range "yYnNtTfFoO~" {
		t[int(c)] = 'M'
	}
	t[int('.')] = '.'

	entries := []struct {
		kind PlainKind
		v    interface{}
		l    []string
	}{
		{KindBool, true, []string{"true", "True", "TRUE"}},
		{KindBool, false, []string{"false", "False", "FALSE"}},
		{KindNull, nil, []string{"", "~", "null", "Null", "NULL"}},
		{KindFloat, math.NaN(), []string{".nan", ".NaN", ".NAN"}},
		{KindFloat, math.Inf(1), []string{".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF"}},
		{KindFloat, math.Inf(-1), []string{"-.inf", "-.Inf", "-.INF"}},
	}
	for _, e := range entries {
		for _, s := range e.l {
			literalMap[s] = tableEntry{kind: e.kind, value: e.v}
		}
	}
}

var yamlStyleFloat = regexp.MustCompile(`^[-+]?(\.\d+|\d+(\.\d*)?)([eE][-+]?\d+)?$`)

// ClassifyPlain applies the null → bool → int → float → string recognition
// order from spec §4.2/§9 to a plain-style scalar's bytes. The whole input
// must consume exactly; trailing bytes fall through to KindString.
func ClassifyPlain(in string) (PlainKind, interface{}) {
	initOnce.Do(initTable)

	if in == "" {
		return KindNull, nil
	}

	hint := resolveTable[in[0]]
	if hint == 0 {
		return KindString, in
	}

	if entry, ok := literalMap[in]; ok {
		return entry.kind, entry.value
	}

	switch hint {
	case 'M':
		// Checked the literal map above; not a recognized keyword.
	case '.':
		if f, err := strconv.ParseFloat(in, 64); err == nil {
			return KindFloat, f
		}
	case 'D', 'S':
		plain := strings.ReplaceAll(in, "_", "")
		if intv, ok := parseBaseAwareInt(plain); ok {
			return KindInt, intv
		}
		if yamlStyleFloat.MatchString(plain) {
			if f, err := strconv.ParseFloat(plain, 64); err == nil {
				return KindFloat, f
			}
		}
	}

	return KindString, in
}

// parseBaseAwareInt parses s as a signed integer accepting the C strtoll
// base conventions 0x (hex), 0o (octal), 0b (binary), and bare 0-prefixed
// octal, per §9. The whole string must consume exactly.
func parseBaseAwareInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	unsigned := s
	if unsigned[0] == '+' || unsigned[0] == '-' {
		neg = unsigned[0] == '-'
		unsigned = unsigned[1:]
	}
	if unsigned == "" {
		return 0, false
	}

	base := 0
	digits := unsigned
	switch {
	case strings.HasPrefix(unsigned, "0x"), strings.HasPrefix(unsigned, "0X"):
		base, digits = 16, unsigned[2:]
	case strings.HasPrefix(unsigned, "0o"), strings.HasPrefix(unsigned, "0O"):
		base, digits = 8, unsigned[2:]
	case strings.HasPrefix(unsigned, "0b"), strings.HasPrefix(unsigned, "0B"):
		base, digits = 2, unsigned[2:]
	case len(unsigned) > 1 && unsigned[0] == '0':
		base, digits = 8, unsigned[1:]
	default:
		base = 10
	}
	if digits == "" {
		return 0, false
	}

	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		return -int64(v), true
	}
	return int64(v), true
}

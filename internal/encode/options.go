package encode

import (
	"fmt"
	"strconv"
	"strings"

	"stillmotion/internal/units"
)

// OptionKind discriminates the typed values a compression option can carry.
type OptionKind int

const (
	KindBool OptionKind = iota
	KindInt
	KindReal
	KindEnum
	KindRates
)

// OptionValue is one typed compression option value.
type OptionValue struct {
	kind  OptionKind
	b     bool
	i     int64
	f     float64
	s     string
	rates []units.BitRate
}

func BoolOption(v bool) OptionValue      { return OptionValue{kind: KindBool, b: v} }
func IntOption(v int64) OptionValue      { return OptionValue{kind: KindInt, i: v} }
func RealOption(v float64) OptionValue   { return OptionValue{kind: KindReal, f: v} }
func EnumOption(v string) OptionValue    { return OptionValue{kind: KindEnum, s: v} }
func RateOption(r units.BitRate) OptionValue {
	return OptionValue{kind: KindRates, rates: []units.BitRate{r}}
}

func (v OptionValue) Kind() OptionKind       { return v.kind }
func (v OptionValue) Bool() bool             { return v.b }
func (v OptionValue) Int() int64             { return v.i }
func (v OptionValue) Real() float64          { return v.f }
func (v OptionValue) Enum() string           { return v.s }
func (v OptionValue) Rates() []units.BitRate { return append([]units.BitRate(nil), v.rates...) }

// String renders the value for logs.
func (v OptionValue) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindEnum:
		return v.s
	case KindRates:
		parts := make([]string, len(v.rates))
		for i, rate := range v.rates {
			parts[i] = fmt.Sprintf("%g bits / %g s", rate.Bits, rate.Seconds)
		}
		return strings.Join(parts, ", ")
	default:
		return "<invalid>"
	}
}

// OptionMap is the one-shot compression configuration handed to the engine.
// Names are lowercased. Last write wins, except rate entries, which
// accumulate into a pair list.
type OptionMap map[string]OptionValue

// Set stores value under name, applying the accumulate-vs-overwrite rule.
func (m OptionMap) Set(name string, value OptionValue) {
	name = strings.ToLower(strings.TrimSpace(name))
	if value.kind == KindRates {
		if existing, ok := m[name]; ok && existing.kind == KindRates {
			existing.rates = append(existing.rates, value.rates...)
			m[name] = existing
			return
		}
	}
	m[name] = value
}

// Clone returns a shallow copy of the map.
func (m OptionMap) Clone() OptionMap {
	out := make(OptionMap, len(m))
	for name, value := range m {
		out[name] = value
	}
	return out
}

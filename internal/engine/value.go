package engine

import (
	"strconv"
)

// Kind tags the type of a parameter value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a typed operator parameter.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

func Int(v int) Value { return Value{kind: KindInt, i: int64(v)} }

func Double(v float64) Value { return Value{kind: KindDouble, f: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IntValue() int { return int(v.i) }

func (v Value) Float() float64 { return v.f }

func (v Value) BoolValue() bool { return v.b }

// String renders the value the way the engine's graph files expect it.
// Doubles always carry a decimal point.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		for _, r := range s {
			if r == '.' || r == 'e' {
				return s
			}
		}
		return s + ".0"
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Param is one key/value pair in an operator parameter table.
type Param struct {
	Key   string
	Value Value
}

// Params is an ordered parameter table. Order is preserved when rendered.
type Params []Param

// Get returns the value stored under key.
func (p Params) Get(key string) (Value, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return Value{}, false
}

// With returns a copy of p with key set to value, replacing an existing entry
// in place or appending a new one.
func (p Params) With(key string, value Value) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Param{Key: key, Value: value})
}

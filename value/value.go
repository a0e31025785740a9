package value

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUInt
	KindDouble
	KindDecimal
	KindString
	KindDateTime
	KindBytes
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindUInt:     "uint",
	KindDouble:   "double",
	KindDecimal:  "decimal",
	KindString:   "string",
	KindDateTime: "datetime",
	KindBytes:    "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one decoded cell, independent of how the driver delivered it.
// The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	d    decimal.Decimal
	s    string
	t    time.Time
	b    []byte
}

func Null() Value { return Value{} }

func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{kind: KindBool, i: i}
}

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func UInt(v uint64) Value { return Value{kind: KindUInt, u: v} }

func Double(v float64) Value { return Value{kind: KindDouble, f: v} }

func Decimal(v decimal.Decimal) Value { return Value{kind: KindDecimal, d: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

// DateTime stores t normalized to UTC.
func DateTime(t time.Time) Value {
	if !t.IsZero() {
		t = t.UTC()
	}
	return Value{kind: KindDateTime, t: t}
}

func Bytes(v []byte) Value { return Value{kind: KindBytes, b: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() bool { return v.i != 0 }

func (v Value) AsInt() int64 { return v.i }

func (v Value) AsUInt() uint64 { return v.u }

func (v Value) AsDouble() float64 { return v.f }

func (v Value) AsDecimal() decimal.Decimal { return v.d }

func (v Value) AsString() string { return v.s }

func (v Value) AsDateTime() time.Time { return v.t }

func (v Value) AsBytes() []byte { return v.b }

// Arg returns v in the form accepted as a database/sql statement argument.
func (v Value) Arg() any {
	switch v.kind {
	case KindBool:
		return v.AsBool()
	case KindInt:
		return v.i
	case KindUInt:
		return v.u
	case KindDouble:
		return v.f
	case KindDecimal:
		return v.d
	case KindString:
		return v.s
	case KindDateTime:
		return v.t
	case KindBytes:
		if v.b == nil {
			return []byte{}
		}
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUInt:
		return strconv.FormatUint(v.u, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return strconv.Quote(v.s)
	case KindDateTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBytes:
		if len(v.b) > 32 {
			return fmt.Sprintf("0x%s... (%d bytes)", hex.EncodeToString(v.b[:32]), len(v.b))
		}
		return "0x" + hex.EncodeToString(v.b)
	default:
		return v.kind.String()
	}
}

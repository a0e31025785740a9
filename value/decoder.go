package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DecodeFunc converts a non-nil raw driver value into a Value.
type DecodeFunc func(raw any) (Value, error)

var signedInts = []string{"TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT"}

// defaultFuncs maps the type names reported by the MySQL driver to decoders.
var defaultFuncs = func() map[string]DecodeFunc {
	m := map[string]DecodeFunc{
		"BOOLEAN": decodeBool,
		"BOOL":    decodeBool,

		"YEAR": decodeInt,

		"FLOAT":  decodeDouble,
		"DOUBLE": decodeDouble,

		"DECIMAL": decodeDecimal,

		"VARCHAR":    decodeString,
		"CHAR":       decodeString,
		"TEXT":       decodeString,
		"TINYTEXT":   decodeString,
		"MEDIUMTEXT": decodeString,
		"LONGTEXT":   decodeString,
		"ENUM":       decodeString,
		"SET":        decodeString,
		"JSON":       decodeString,
		"TIME":       decodeString,

		"TIMESTAMP": decodeDateTime,
		"DATETIME":  decodeDateTime,
		"DATE":      decodeDateTime,

		"BLOB":       decodeBytes,
		"TINYBLOB":   decodeBytes,
		"MEDIUMBLOB": decodeBytes,
		"LONGBLOB":   decodeBytes,
		"BINARY":     decodeBytes,
		"VARBINARY":  decodeBytes,
		"BIT":        decodeBytes,
	}
	// unsigned columns are reported as "INT UNSIGNED" by some servers and
	// "UNSIGNED INT" by go-sql-driver
	for _, name := range signedInts {
		m[name] = decodeInt
		m[name+" UNSIGNED"] = decodeUInt
		m["UNSIGNED "+name] = decodeUInt
	}
	return m
}()

// Decoder turns raw driver cells into Values using a type-name lookup table.
// It is safe for concurrent use once registration is finished.
type Decoder struct {
	funcs map[string]DecodeFunc
}

func NewDecoder() *Decoder {
	funcs := make(map[string]DecodeFunc, len(defaultFuncs))
	for name, fn := range defaultFuncs {
		funcs[name] = fn
	}
	return &Decoder{funcs: funcs}
}

// Register adds or replaces the decoder for a type name.
func (d *Decoder) Register(name string, fn DecodeFunc) {
	d.funcs[name] = fn
}

func (d *Decoder) Supports(typeName string) bool {
	_, ok := d.funcs[typeName]
	return ok
}

// TypeNames returns every registered type name.
func (d *Decoder) TypeNames() []string {
	names := make([]string, 0, len(d.funcs))
	for name := range d.funcs {
		names = append(names, name)
	}
	return names
}

// Decode converts raw, as scanned from the driver, into a Value of the
// variant implied by typeName. SQL NULL always decodes to Null.
func (d *Decoder) Decode(raw any, typeName string) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	fn, ok := d.funcs[typeName]
	if !ok {
		return Value{}, &UnsupportedTypeError{Name: typeName}
	}
	v, err := fn(raw)
	if err != nil {
		return Value{}, &DecodeError{Type: typeName, Raw: raw, Err: err}
	}
	return v, nil
}

var errUnexpectedType = errors.New("unexpected driver type")

func decodeBool(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), nil
	case int64:
		return Bool(v != 0), nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	}
	return Value{}, errUnexpectedType
}

func parseBool(s string) (Value, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return Value{}, err
	}
	return Bool(b), nil
}

func decodeInt(raw any) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return Int(v), nil
	case int32:
		return Int(int64(v)), nil
	case int:
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("%d overflows int64", v)
		}
		return Int(int64(v)), nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}
	return Value{}, errUnexpectedType
}

func parseInt(s string) (Value, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, err
	}
	return Int(i), nil
}

func decodeUInt(raw any) (Value, error) {
	switch v := raw.(type) {
	case uint64:
		return UInt(v), nil
	case int64:
		if v < 0 {
			return Value{}, fmt.Errorf("negative value %d", v)
		}
		return UInt(uint64(v)), nil
	case []byte:
		return parseUInt(string(v))
	case string:
		return parseUInt(v)
	}
	return Value{}, errUnexpectedType
}

func parseUInt(s string) (Value, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Value{}, err
	}
	return UInt(u), nil
}

func decodeDouble(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return Double(v), nil
	case float32:
		return Double(float64(v)), nil
	case int64:
		return Double(float64(v)), nil
	case []byte:
		return parseDouble(string(v))
	case string:
		return parseDouble(v)
	}
	return Value{}, errUnexpectedType
}

func parseDouble(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, err
	}
	return Double(f), nil
}

func decodeDecimal(raw any) (Value, error) {
	switch v := raw.(type) {
	case []byte:
		return parseDecimal(string(v))
	case string:
		return parseDecimal(v)
	case int64:
		return Decimal(decimal.New(v, 0)), nil
	case float64:
		return Decimal(decimal.NewFromFloat(v)), nil
	}
	return Value{}, errUnexpectedType
}

func parseDecimal(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, err
	}
	return Decimal(d), nil
}

func decodeString(raw any) (Value, error) {
	switch v := raw.(type) {
	case []byte:
		return String(string(v)), nil
	case string:
		return String(v), nil
	}
	return Value{}, errUnexpectedType
}

// layouts accepted for textual DATETIME, TIMESTAMP and DATE cells
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02",
}

func decodeDateTime(raw any) (Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return DateTime(v), nil
	case []byte:
		return parseDateTime(string(v))
	case string:
		return parseDateTime(v)
	}
	return Value{}, errUnexpectedType
}

func parseDateTime(s string) (Value, error) {
	if strings.HasPrefix(s, "0000-00-00") {
		return DateTime(time.Time{}), nil
	}
	var err error
	for _, layout := range dateTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return DateTime(t), nil
		}
	}
	return Value{}, err
}

func decodeBytes(raw any) (Value, error) {
	switch v := raw.(type) {
	case []byte:
		return Bytes(v), nil
	case string:
		return Bytes([]byte(v)), nil
	}
	return Value{}, errUnexpectedType
}

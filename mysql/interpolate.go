package mysql

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// interpolate replaces each ? placeholder outside backtick-quoted
// identifiers with the SQL literal for the matching argument. Strings are
// escaped with backslashes, as the server does in its default SQL mode.
func interpolate(query string, args ...any) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	buf := make([]byte, 0, len(query)+len(args)*8)
	var (
		argPos     int
		identifier bool
		err        error
	)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '`':
			identifier = !identifier
		case c == '?' && !identifier:
			if argPos >= len(args) {
				return "", fmt.Errorf("interpolate: more placeholders than %d arguments", len(args))
			}
			if buf, err = appendLiteral(buf, args[argPos]); err != nil {
				return "", err
			}
			argPos++
			continue
		}
		buf = append(buf, c)
	}
	if argPos != len(args) {
		return "", fmt.Errorf("interpolate: %d placeholders for %d arguments", argPos, len(args))
	}
	return string(buf), nil
}

func appendLiteral(buf []byte, arg any) ([]byte, error) {
	switch v := arg.(type) {
	case nil:
		return append(buf, "NULL"...), nil
	case bool:
		if v {
			return append(buf, '1'), nil
		}
		return append(buf, '0'), nil
	case int64:
		return strconv.AppendInt(buf, v, 10), nil
	case uint64:
		return strconv.AppendUint(buf, v, 10), nil
	case float64:
		return strconv.AppendFloat(buf, v, 'g', -1, 64), nil
	case decimal.Decimal:
		return append(buf, v.String()...), nil
	case time.Time:
		if v.IsZero() {
			return append(buf, "'0000-00-00'"...), nil
		}
		buf = append(buf, '\'')
		buf = append(buf, v.UTC().Format("2006-01-02 15:04:05.999999")...)
		return append(buf, '\''), nil
	case string:
		buf = append(buf, '\'')
		buf = escapeBackslash(buf, v)
		return append(buf, '\''), nil
	case []byte:
		buf = append(buf, "_binary'"...)
		buf = escapeBackslash(buf, string(v))
		return append(buf, '\''), nil
	default:
		return buf, fmt.Errorf("interpolate: unsupported argument type %T", arg)
	}
}

// escapeBackslash follows mysql_real_escape_string.
func escapeBackslash(buf []byte, v string) []byte {
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\x00':
			buf = append(buf, '\\', '0')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\x1a':
			buf = append(buf, '\\', 'Z')
		case '\'':
			buf = append(buf, '\\', '\'')
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

package merge

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a Value so merge dispatch can pattern-match instead of
// runtime-type-checking raw JSON.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is the typed form of one JSON record field.
type Value struct {
	Kind Kind
	Num  float64
	Text string
	Bool bool
}

// FromJSON converts a decoded JSON value into a tagged Value. Unsupported
// shapes (nested objects, arrays) degrade to their text rendering.
func FromJSON(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}
	case float64:
		return Value{Kind: KindNumber, Num: v}
	case bool:
		return Value{Kind: KindBool, Bool: v}
	case string:
		return Value{Kind: KindText, Text: v}
	default:
		return Value{Kind: KindText, Text: fmt.Sprintf("%v", raw)}
	}
}

// String renders the value for output cells and group keys. Booleans use
// the 是/否 form the consolidated reports are written in.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		if v.Bool {
			return "是"
		}
		return "否"
	default:
		return ""
	}
}

// AsNumber returns the numeric reading of the value; text is parsed, other
// kinds do not count.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AsBool returns the boolean reading of the value. Text accepts the 是/否
// pair plus the usual true/false spellings.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.Text)) {
		case "是", "true", "yes", "1":
			return true, true
		case "否", "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

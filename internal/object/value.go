// Package object defines the tagged-union runtime value shared by the
// compiler's input conventions and the virtual machine's operand stack.
package object

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueType identifies the variant stored in a Value.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeMap
	TypeFunction
)

var typeNames = map[ValueType]string{
	TypeNull:     "Null",
	TypeBool:     "Bool",
	TypeNumber:   "Number",
	TypeString:   "String",
	TypeArray:    "Array",
	TypeMap:      "Map",
	TypeFunction: "Function",
}

// String returns the variant name for error messages.
func (t ValueType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Value is a tagged union. Num doubles as bool storage (0/1), Str doubles as
// the function name for TypeFunction.
type Value struct {
	Type   ValueType
	Num    float64
	Str    string
	Elems  []Value
	Fields map[string]Value
	Entry  int // code offset of a function's first instruction
}

// Constructors

func NullVal() Value {
	return Value{Type: TypeNull}
}

func BoolVal(b bool) Value {
	var n float64
	if b {
		n = 1
	}
	return Value{Type: TypeBool, Num: n}
}

func NumberVal(n float64) Value {
	return Value{Type: TypeNumber, Num: n}
}

func StringVal(s string) Value {
	return Value{Type: TypeString, Str: s}
}

func ArrayVal(elems []Value) Value {
	return Value{Type: TypeArray, Elems: elems}
}

func MapVal(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{Type: TypeMap, Fields: fields}
}

// FuncVal is a function reference: a name plus the absolute code offset of
// the function's entry point.
func FuncVal(name string, entry int) Value {
	return Value{Type: TypeFunction, Str: name, Entry: entry}
}

// Accessors

func (v Value) AsBool() bool      { return v.Num == 1 }
func (v Value) AsNumber() float64 { return v.Num }

func (v Value) IsNull() bool     { return v.Type == TypeNull }
func (v Value) IsNumber() bool   { return v.Type == TypeNumber }
func (v Value) IsString() bool   { return v.Type == TypeString }
func (v Value) IsFunction() bool { return v.Type == TypeFunction }

// Truthy projects a value onto a boolean: null, zero, and empty
// strings/arrays/maps are false; everything else is true.
func (v Value) Truthy() bool {
	switch v.Type {
	case TypeNull:
		return false
	case TypeBool:
		return v.AsBool()
	case TypeNumber:
		return v.Num != 0
	case TypeString:
		return v.Str != ""
	case TypeArray:
		return len(v.Elems) > 0
	case TypeMap:
		return len(v.Fields) > 0
	case TypeFunction:
		return true
	default:
		return false
	}
}

// Equals is deep value equality. Function references compare by entry point.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeBool, TypeNumber:
		return v.Num == other.Num
	case TypeString:
		return v.Str == other.Str
	case TypeFunction:
		return v.Entry == other.Entry
	case TypeArray:
		if len(v.Elems) != len(other.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equals(other.Elems[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.Fields) != len(other.Fields) {
			return false
		}
		for k, val := range v.Fields {
			ov, ok := other.Fields[k]
			if !ok || !val.Equals(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Inspect returns a display representation.
func (v Value) Inspect() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBool:
		return strconv.FormatBool(v.AsBool())
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case TypeString:
		return v.Str
	case TypeFunction:
		return fmt.Sprintf("<fn %s @%d>", v.Str, v.Entry)
	case TypeArray:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Inspect())
		}
		sb.WriteByte(']')
		return sb.String()
	case TypeMap:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v.Fields[k].Inspect())
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return "<?>"
	}
}

// Interface converts a Value to plain Go data for JSON encoding. Function
// references become their Inspect form.
func (v Value) Interface() any {
	switch v.Type {
	case TypeNull:
		return nil
	case TypeBool:
		return v.AsBool()
	case TypeNumber:
		return v.Num
	case TypeString:
		return v.Str
	case TypeArray:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			out[i] = e.Interface()
		}
		return out
	case TypeMap:
		out := make(map[string]any, len(v.Fields))
		for k, val := range v.Fields {
			out[k] = val.Interface()
		}
		return out
	case TypeFunction:
		return v.Inspect()
	default:
		return nil
	}
}

// FromInterface converts decoded JSON data into a Value. Unknown Go types
// become null.
func FromInterface(data any) Value {
	switch d := data.(type) {
	case nil:
		return NullVal()
	case bool:
		return BoolVal(d)
	case float64:
		return NumberVal(d)
	case string:
		return StringVal(d)
	case []any:
		elems := make([]Value, len(d))
		for i, e := range d {
			elems[i] = FromInterface(e)
		}
		return ArrayVal(elems)
	case map[string]any:
		fields := make(map[string]Value, len(d))
		for k, val := range d {
			fields[k] = FromInterface(val)
		}
		return MapVal(fields)
	default:
		return NullVal()
	}
}

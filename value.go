package kuggleapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Kind 表示 Value 的类型。
type Kind int

const (
	KindNull   Kind = iota // null ，也是 Value 的零值。
	KindString             // 字符串。
	KindNumber             // 数值，保留 JSON 里的原始文本。
	KindBool               // 布尔值。
	KindList               // 有序的元素序列。
	KindMap                // string -> Value 的映射。
)

// String 实现 fmt.Stringer 。
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value 是一个递归定义的 JSON 值，用于表示请求参数和 API 的返回数据。
// 零值表示 null 。 Value 创建后不应被修改，可在多个 goroutine 间共享。
type Value struct {
	kind Kind
	str  string // KindString 的内容，或 KindNumber 的原始文本。
	b    bool
	list []Value
	m    map[string]Value
}

var (
	_ json.Marshaler   = (*Value)(nil)
	_ json.Unmarshaler = (*Value)(nil)
	_ fmt.Stringer     = (*Value)(nil)
)

// Params 是请求参数表。
type Params map[string]Value

// NewNull 返回 null 。
func NewNull() Value { return Value{} }

// NewString 返回一个字符串值。
func NewString(s string) Value { return Value{kind: KindString, str: s} }

// NewBool 返回一个布尔值。
func NewBool(b bool) Value { return Value{kind: KindBool, b: b} }

// NewInt 返回一个整数值。
func NewInt(i int64) Value { return Value{kind: KindNumber, str: strconv.FormatInt(i, 10)} }

// NewFloat 返回一个浮点数值，使用最短的能够还原该值的十进制形式，不使用指数。
// NaN 和 Inf 不是合法的 JSON 数值，会 panic 。
func NewFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Sprintf("kuggleapi: %v is not a valid number", f))
	}
	return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NewNumber 使用 JSON 数值的原始文本创建一个数值。若给定文本不是合法的数值，返回错误。
func NewNumber(n json.Number) (Value, error) {
	if _, err := n.Float64(); err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return Value{kind: KindNumber, str: n.String()}, nil
}

// NewList 返回由给定元素构成的序列。
func NewList(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// NewMap 返回一个映射。给定的 map 会被复制。
func NewMap(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

// StringParams 将全部值都是字符串的参数表转换为 Params 。
func StringParams(m map[string]string) Params {
	params := make(Params, len(m))
	for k, v := range m {
		params[k] = NewString(v)
	}
	return params
}

// ParamsOf 使用 FromAny 转换参数表中的每个值。
func ParamsOf(m map[string]any) (Params, error) {
	params := make(Params, len(m))
	for k, v := range m {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		params[k] = val
	}
	return params, nil
}

// FromAny 将 Go 的基础类型转换为 Value 。支持：
//   - nil 、 Value 、 string 、 bool 、各类整数和浮点数、 json.Number ；
//   - []any 、 []string 、 []Value ；
//   - map[string]any 、 map[string]string 、 map[string]Value 、 Params 。
//
// 其他类型返回错误。
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return v, nil
	case string:
		return NewString(v), nil
	case bool:
		return NewBool(v), nil
	case int:
		return NewInt(int64(v)), nil
	case int8:
		return NewInt(int64(v)), nil
	case int16:
		return NewInt(int64(v)), nil
	case int32:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case uint:
		return Value{kind: KindNumber, str: strconv.FormatUint(uint64(v), 10)}, nil
	case uint8:
		return NewInt(int64(v)), nil
	case uint16:
		return NewInt(int64(v)), nil
	case uint32:
		return NewInt(int64(v)), nil
	case uint64:
		return Value{kind: KindNumber, str: strconv.FormatUint(v, 10)}, nil
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%v is not a valid number", v)
		}
		return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'f', -1, 32)}, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Value{}, fmt.Errorf("%v is not a valid number", v)
		}
		return NewFloat(v), nil
	case json.Number:
		return NewNumber(v)
	case []Value:
		return NewList(v...), nil
	case []string:
		list := make([]Value, len(v))
		for i, s := range v {
			list[i] = NewString(s)
		}
		return Value{kind: KindList, list: list}, nil
	case []any:
		list := make([]Value, len(v))
		for i, item := range v {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = val
		}
		return Value{kind: KindList, list: list}, nil
	case Params:
		return NewMap(v), nil
	case map[string]Value:
		return NewMap(v), nil
	case map[string]string:
		m := make(map[string]Value, len(v))
		for k, s := range v {
			m[k] = NewString(s)
		}
		return Value{kind: KindMap, m: m}, nil
	case map[string]any:
		m := make(map[string]Value, len(v))
		for k, item := range v {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%s]: %w", k, err)
			}
			m[k] = val
		}
		return Value{kind: KindMap, m: m}, nil
	}
	return Value{}, fmt.Errorf("unsupported type %T", x)
}

// Kind 返回当前值的类型。
func (v Value) Kind() Kind { return v.kind }

// IsNull 判断当前值是否为 null 。
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString 返回字符串值。若当前值不是字符串，返回 false 。
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBool 返回布尔值。若当前值不是布尔值，返回 false 。
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt 返回整数值。若当前值不是数值，或不是一个在 int64 范围内的整数，返回 false 。
// 形如 200.0 这样小数部分为 0 的数值也被视为整数。
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}

	if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
		return i, true
	}

	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// AsFloat 返回数值。若当前值不是数值，返回 false 。
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Len 返回序列或映射的元素个数，其他类型返回 0 。
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Index 返回序列的第 i 个元素。若当前值不是序列或下标越界，返回 null 。
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}
	}
	return v.list[i]
}

// Items 返回序列的元素的副本。若当前值不是序列，返回 nil 。
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	res := make([]Value, len(v.list))
	copy(res, v.list)
	return res
}

// Lookup 获取映射中指定 key 的值。若当前值不是映射或 key 不存在，返回 false 。
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	res, ok := v.m[key]
	return res, ok
}

// Get 获取映射中指定 key 的值。若当前值不是映射或 key 不存在，返回 null 。
// 可以链式调用，如 body.Get("data").Get("id") 。
func (v Value) Get(key string) Value {
	res, _ := v.Lookup(key)
	return res
}

// Keys 返回映射的全部 key ，按升序排列。若当前值不是映射，返回 nil 。
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	return sortedKeys(v.m)
}

// Interface 将当前值转换为 Go 的基础类型：
// null 为 nil ，字符串为 string ，布尔为 bool ，整数为 int64 ，其余数值为 float64 ，
// 序列为 []any ，映射为 map[string]any 。
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(v.str, 64)
		return f
	case KindList:
		res := make([]any, len(v.list))
		for i, item := range v.list {
			res[i] = item.Interface()
		}
		return res
	case KindMap:
		res := make(map[string]any, len(v.m))
		for k, item := range v.m {
			res[k] = item.Interface()
		}
		return res
	}
	return nil
}

// ConvertTo 使用 Conv 将当前值转换为给定的类型，通常用于将 data 部分读取到 struct 。
func (v Value) ConvertTo(typ reflect.Type) (any, error) {
	return Conv.ConvertType(v.Interface(), typ)
}

// DecodeData 读取 API 回执中的 data 字段，并将其转换为 T 。
// 字段名称的匹配是大小写不敏感的。
func DecodeData[T any](body Value) (T, error) {
	var zero T
	data := body.Get("data")
	if data.IsNull() {
		return zero, nil
	}

	res, err := data.ConvertTo(reflect.TypeOf(&zero).Elem())
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	return res.(T), nil
}

// MarshalJSON 实现 json.Marshaler 。映射的 key 按升序输出。
func (v Value) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.writeJSON(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")

	case KindString:
		s, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(s)

	case KindNumber:
		buf.WriteString(v.str)

	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))

	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case KindMap:
		buf.WriteByte('{')
		for i, k := range sortedKeys(v.m) {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.m[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	default:
		return fmt.Errorf("unknown kind %v", v.kind)
	}
	return nil
}

// UnmarshalJSON 实现 json.Unmarshaler 。数值保留其原始文本。
// data 必须恰好是一个 JSON 值，其后只允许有空白。
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid data after top-level value at offset %d", dec.InputOffset())
	}

	res, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = res
	return nil
}

// String 实现 fmt.Stringer ，返回 JSON 形式。
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}

// scalarText 返回基础类型用于参数编码的文本。
// 布尔值编码为 1 或 0 ， null 编码为空字符串。
func (v Value) scalarText() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.str
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	}
	return ""
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

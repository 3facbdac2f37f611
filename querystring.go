package kuggleapi

import (
	"fmt"
	"strings"
)

// QueryPair 是参数编码后的一个 key=value 对。 Key 和 Value 均为转义前的原文。
type QueryPair struct {
	Key   string
	Value string
}

// EncodeParams 将参数表编码为规范化（canonical）的 query-string ，用于 URL 或表单格式的 body 。
//
// 规则：
//   - 顶层参数按名称升序（字节顺序）排列，嵌套的 map 同样按 key 排序，以保证相同的参数总是得到相同的结果；
//   - map 展开为 parent[nested] ，序列的每个元素展开为 parent[] ，保持元素原有的顺序；
//   - key 和 value 都经过 Escape 转义；
//   - 各部分以 key=value 形式使用 & 拼接。
//
// 参数表为空时返回空字符串，此时调用方不应在 URL 后追加“?”。
//
// 不同的参数展开后可能得到相同的 key ，如直接给出的 "a[b]" 和 {"a":{"b":...}} ，
// 这些参数会按排序后的顺序全部输出，不做去重。
func EncodeParams(params Params) string {
	pairs := EncodePairs(params)
	if len(pairs) == 0 {
		return ""
	}

	b := new(strings.Builder)
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(p.Value))
	}
	return b.String()
}

// EncodePairs 返回 EncodeParams 展开后、转义前的 key-value 对，顺序与 EncodeParams 的输出一致。
func EncodePairs(params Params) []QueryPair {
	var pairs []QueryPair
	for _, k := range sortedKeys(params) {
		pairs = appendPairs(pairs, k, params[k])
	}
	return pairs
}

func appendPairs(pairs []QueryPair, key string, v Value) []QueryPair {
	switch v.kind {
	case KindMap:
		for _, nested := range sortedKeys(v.m) {
			pairs = appendPairs(pairs, key+"["+nested+"]", v.m[nested])
		}
	case KindList:
		for _, item := range v.list {
			pairs = appendPairs(pairs, key+"[]", item)
		}
	default:
		pairs = append(pairs, QueryPair{key, v.scalarText()})
	}
	return pairs
}

const upperHex = "0123456789ABCDEF"

// Escape 对给定的字符串做百分号编码（percent-encoding）。
// 保留字母、数字及 -._~ ，另外“?”和“/”也不转义（参考 RFC 3986 - Section 3.4 ）；
// 其余字节，包括 :#[]@!$&'()*+,;= 和空格，都编码为 %XX （大写 HEX ）。空格不会被编码为“+”。
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !shouldKeep(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	b := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			b = append(b, c)
		} else {
			b = append(b, '%', upperHex[c>>4], upperHex[c&15])
		}
	}
	return string(b)
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	switch c {
	case '-', '.', '_', '~', '?', '/':
		return true
	}
	return false
}

// Unescape 是 Escape 的逆过程。“+”不会被当做空格。
func Unescape(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}

	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b = append(b, c)
			continue
		}

		if i+2 >= len(s) {
			return "", fmt.Errorf("invalid escape %q", s[i:])
		}

		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid escape %q", s[i:i+3])
		}
		b = append(b, hi<<4|lo)
		i += 2
	}
	return string(b), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// ParseEncoded 解析 EncodeParams 的输出，按原有顺序返回解码后的 key-value 对。
// 给定的串可以以“?”开头。没有“=”的部分被视为值为空字符串的参数。
func ParseEncoded(queryString string) ([]QueryPair, error) {
	queryString = strings.TrimPrefix(queryString, "?")
	if queryString == "" {
		return nil, nil
	}

	parts := strings.Split(queryString, "&")
	pairs := make([]QueryPair, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := Unescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}

		value, err := Unescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("parse value of %q: %w", key, err)
		}

		pairs = append(pairs, QueryPair{key, value})
	}
	return pairs, nil
}

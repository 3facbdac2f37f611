// Package credstore 提供凭据（如登录 token ）的本地存储。
//
// 存储中的每个 key 至多对应一个 [Entry] ，重复写入同一个 key 会替换原有的值。
// 存储不解释值的内容，值是不透明的字节序列。
package credstore

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Store 定义凭据存储。实现需支持并发读写，同一个 key 的并发写入以最后一次写入为准。
type Store interface {
	// Set 写入 key 对应的值。已有的值会先被移除，不会出现重复的条目。返回写入是否成功。
	Set(key string, value []byte, access Accessibility) bool

	// Get 读取 key 对应的值。 key 不存在或读取失败时，返回 nil, false 。
	Get(key string) ([]byte, bool)

	// Delete 删除 key 对应的值，返回删除是否成功。删除不存在的 key 也视为成功。
	Delete(key string) bool

	// Clear 删除全部的值，返回删除是否成功。
	Clear() bool
}

// Entry 是存储中的一个条目。
type Entry struct {
	Key           string
	Value         []byte
	Accessibility Accessibility
}

// EntryStore 是能够返回完整条目（包含 Accessibility ）的 Store 。
type EntryStore interface {
	Store

	// Entry 读取 key 对应的条目。 key 不存在或读取失败时，返回 false 。
	Entry(key string) (Entry, bool)
}

// SetString 以 UTF-8 编码写入一个字符串值。
func SetString(s Store, key, value string, access Accessibility) bool {
	return s.Set(key, []byte(value), access)
}

// GetString 读取一个字符串值。
func GetString(s Store, key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	return string(v), true
}

// Lookup 读取 key 对应的条目。若 s 没有实现 EntryStore ，则 Accessibility 总是 DefaultAccessibility 。
func Lookup(s Store, key string) (Entry, bool) {
	if es, ok := s.(EntryStore); ok {
		return es.Entry(key)
	}

	v, ok := s.Get(key)
	if !ok {
		return Entry{}, false
	}
	return Entry{Key: key, Value: v, Accessibility: DefaultAccessibility}, true
}

// Fingerprint 返回给定值的 blake3 摘要的前 8 字节（16 个 HEX 字符），
// 可用于在日志中区分不同的凭据而不暴露其内容。空值返回空字符串。
func Fingerprint(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	sum := blake3.Sum256(value)
	return hex.EncodeToString(sum[:8])
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	res := make([]byte, len(b))
	copy(res, b)
	return res
}

package kuggleapi

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale 是无法确定当前区域设置时使用的值。
const DefaultLocale = "en_US"

// LocaleProvider 提供当前的区域标识，用作 Accept-Language 头的值。
type LocaleProvider interface {
	// Locale 返回区域标识，格式如 en_US 、 zh_Hans_CN 。
	Locale() string
}

// FixedLocale 是总是返回同一个值的 LocaleProvider 。
type FixedLocale string

// Locale 实现 LocaleProvider.Locale 。
func (l FixedLocale) Locale() string {
	return string(l)
}

// EnvLocale 从 LC_ALL 、 LC_MESSAGES 、 LANG 环境变量（按此优先级）读取区域设置，
// 如 "zh_CN.UTF-8" 得到 zh_CN 。 未设置、为 C/POSIX 或无法识别时，返回 DefaultLocale 。
//
// 这是一个单例。
var EnvLocale LocaleProvider = envLocale{}

type envLocale struct{}

func (envLocale) Locale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" {
			return NormalizeLocale(v)
		}
	}
	return DefaultLocale
}

// NormalizeLocale 将 POSIX 格式的区域设置（如 "en_US.UTF-8@euro"）或 BCP 47 标签（如 "zh-Hans-CN"）
// 转换为以下划线分割的区域标识。无法识别时返回 DefaultLocale 。
func NormalizeLocale(v string) string {
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}

	if v == "" || v == "C" || v == "POSIX" {
		return DefaultLocale
	}

	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return DefaultLocale
	}
	return strings.ReplaceAll(tag.String(), "-", "_")
}

package kuggleapi

import (
	"time"

	"github.com/cmstar/go-conv"
)

const (
	// TimeFormat 是回执中常见的时间格式： yyyy-MM-dd HH:mm:ss ，时区为 UTC 。
	TimeFormat = "2006-01-02 15:04:05"

	// TimeFormat 的微秒版本，解析时间时使用此格式。
	timeFormatMicro = "2006-01-02 15:04:05.999999"
)

// Conv 是用于读取 API 回执数据的 [conv.Conv] 实例。它支持：
//   - 字段使用大小写不敏感（case-insensitive）的方式匹配，如 JSON 的 "id" 、 "name" 可直接映射到 Go 的 ID 、 Name 字段；
//   - 字符串到 time.Time 的转换，见 [ParseTime] 。
var Conv = conv.Conv{
	Conf: conv.Config{
		FieldMatcherCreator: &conv.SimpleMatcherCreator{
			Conf: conv.SimpleMatcherConfig{
				CaseInsensitive: true,
			},
		},
		StringToTime: ParseTime,
	},
}

// ParseTime 解析回执中的时间。优先使用 TimeFormat （时区为 UTC ），解析失败再用 conv 的默认格式（如 RFC3339 ）处理。
func ParseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeFormatMicro, v)
	if err == nil {
		return t.UTC(), nil
	}

	t, err2 := conv.DefaultStringToTime(v)
	if err2 == nil {
		return t, nil // RFC3339 这类格式自带时区信息，不做转换。
	}

	// 错误信息以最初的格式为准。
	return time.Time{}, err
}

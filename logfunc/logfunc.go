// Package logfunc 提供一组预定义的 [kuggleapi.LogFunc] ，以便快速组装 [kuggleapi.LogFuncPipeline] 。
package logfunc

import (
	"time"

	"github.com/cmstar/go-kuggleapi"
)

// Default 返回常用的 LogFunc 组成的管道，依次为 Method 、 URL 、 Status 、 Duration 、 Token 、 Error 。
func Default() kuggleapi.LogFuncPipeline {
	return kuggleapi.NewLogFuncPipeline(Method, URL, Status, Duration, Token, Error)
}

// Method 输出 HTTP 方法和调用的 endpoint 。
//
// 输出字段为： Method/Endpoint 。
func Method(state *kuggleapi.CallState) {
	state.LogMessage = append(state.LogMessage,
		"Method", state.Method,
		"Endpoint", state.Endpoint,
	)
}

// URL 输出请求的完整 URL ，包含 query-string 。请求未能构建时不输出。
//
// 输出字段为： URL 。
func URL(state *kuggleapi.CallState) {
	if state.URL == "" {
		return
	}
	state.LogMessage = append(state.LogMessage, "URL", state.URL)
}

// Status 输出 HTTP 状态码，没有得到回执时不输出。
//
// 输出字段为： Status 。
func Status(state *kuggleapi.CallState) {
	if state.StatusCode == 0 {
		return
	}
	state.LogMessage = append(state.LogMessage, "Status", state.StatusCode)
}

// Duration 输出调用的耗时，单位为毫秒。
//
// 输出字段为： Duration 。
func Duration(state *kuggleapi.CallState) {
	ms := float64(state.Duration) / float64(time.Millisecond)
	state.LogMessage = append(state.LogMessage, "Duration", ms)
}

// Token 输出所用 Token 的摘要（不输出 Token 本身），以及本次调用对凭据存储的改动。
//
// 输出字段为： Token 、 TokenIssued （仅存储了新的 Token 时）、 TokenEvicted （仅删除了 Token 时）。
func Token(state *kuggleapi.CallState) {
	if state.TokenFingerprint != "" {
		state.LogMessage = append(state.LogMessage, "Token", state.TokenFingerprint)
	}

	if state.TokenIssued {
		state.LogMessage = append(state.LogMessage, "TokenIssued", true)
	}

	if state.TokenEvicted {
		state.LogMessage = append(state.LogMessage, "TokenEvicted", true)
	}
}

// Error 根据当前的错误信息，判断错误的级别，并输出错误的描述信息。
// 对于 [kuggleapi.ApiError] ，额外输出 meta.code 。
//
// 输出字段为： ErrorType/Error ，以及 Code （仅 ApiError ）。
func Error(state *kuggleapi.CallState) {
	if state.Error == nil {
		return
	}

	logLevel, errTypeName, errDescription := kuggleapi.DescribeError(state.Error)

	state.LogLevel = logLevel
	state.LogMessage = append(state.LogMessage,
		"ErrorType", errTypeName,
		"Error", errDescription,
	)

	if apiErr, ok := state.Error.(*kuggleapi.ApiError); ok {
		state.LogMessage = append(state.LogMessage, "Code", apiErr.Code)
	}
}

package kuggleapi

import (
	"time"

	"github.com/cmstar/go-logx"
)

// CallState 记录一次 API 调用过程中的数据，每次调用使用一个新的 CallState 。
// 调用结束后， CallState 被交给 [CallLogger] 用于输出日志。
type CallState struct {
	// Method 是 HTTP 方法，如 GET 、 POST 。
	Method string

	// Endpoint 是调用的 API 路径，如 profile 。
	Endpoint string

	// URL 是完整的请求地址，包含 query-string 。请求未能构建时为空。
	URL string

	// Request 是 BuildRequest 构建得到的请求。请求未能构建时为 nil 。
	Request *Request

	// StatusCode 是 HTTP 状态码。没有得到 HTTP 回执时为 0 。
	StatusCode int

	// Duration 是调用的耗时，从构建请求开始，到回执被校验完毕为止。
	Duration time.Duration

	// TokenFingerprint 是本次调用所用的 Token 的摘要，见 credstore.Fingerprint 。没有 Token 时为空。
	TokenFingerprint string

	// TokenIssued 表示本次调用的回执中带有新的 Token ，且已写入凭据存储。
	TokenIssued bool

	// TokenEvicted 表示本次调用因 401 错误删除了凭据存储中的 Token 。
	TokenEvicted bool

	// Body 是解析得到的回执。未能解析时为 null 。
	Body Value

	// Error 是调用返回的错误，没有错误时为 nil 。
	Error error

	// Logger 用于接收当前调用需记录的日志。可以为 nil ，表示不记录日志。
	Logger logx.Logger

	// 输出日志时的日志级别。若为 0 ，则使用默认级别（由 [CallLogger] 决定）。
	LogLevel logx.Level

	// LogMessage 用于记录各个处理流程中的日志信息，用于在 [CallLogger] 中的输出。
	// key-value 对，与 [logx.Logger.Log] 的 keyValues 参数定义一致。
	LogMessage []any
}

// CallLogger 用于在一次调用结束后输出日志。
type CallLogger interface {
	// Log 输出日志。若 [CallState.Logger] 为 nil ，则不输出。
	Log(state *CallState)
}

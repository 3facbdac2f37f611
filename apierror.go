package kuggleapi

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/cmstar/go-errx"
	"github.com/cmstar/go-logx"
)

/*
当前文件提供调用 API 过程中的错误类型及处理错误的方法。
每次调用至多产生其中一种错误，客户端不会自动重试。
*/

// TransportError 表示未能得到 HTTP 回执的网络层错误，如连接失败、超时、 context 被取消等。
// 原始错误可通过 errors.Is/As 访问。
type TransportError struct {
	errx.ErrorCause
}

// Error 实现 error 接口。
func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

// Unwrap 返回原始错误。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// GeneralHttpError 表示 HTTP 状态码不在 200/401/404 之内，此时不会尝试解析 body 。
type GeneralHttpError struct {
	StatusCode int
}

// Error 实现 error 接口。
func (e *GeneralHttpError) Error() string {
	return fmt.Sprintf("general HTTP error: status %d", e.StatusCode)
}

// MalformedResponseError 表示回执的 body 不是合法的 JSON 。
type MalformedResponseError struct {
	errx.ErrorCause
}

// Error 实现 error 接口。
func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Err.Error()
}

// Unwrap 返回 JSON 解析的错误。
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// MalformedEnvelopeError 表示回执是合法的 JSON ，但不具有 meta.code （整数）和 meta.msg （字符串）。
type MalformedEnvelopeError struct {
	Reason string
}

// Error 实现 error 接口。
func (e *MalformedEnvelopeError) Error() string {
	return "malformed envelope: " + e.Reason
}

// ApiError 表示回执的 meta.code 不是 200 ，是最常见的业务层面的错误。
// 发生此错误时，调用方仍能得到完整的回执，其同时记录在 Body 上。
type ApiError struct {
	Code    int    // 对应 meta.code 。
	Message string // 对应 meta.msg 。
	Body    Value  // 完整的回执。
}

// Error 实现 error 接口。
func (e *ApiError) Error() string {
	return fmt.Sprintf("(%d) %s", e.Code, e.Message)
}

// StatusCode 从错误链上获取状态码： [ApiError] 返回 meta.code ， [GeneralHttpError] 返回 HTTP 状态码。
// 其余错误返回 false 。
func StatusCode(err error) (int, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}

	var httpErr *GeneralHttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}

	return 0, false
}

// DescribeError 根据给定的错误，返回错误的日志级别、名称和错误描述。 如果 err 为 nil ，返回 logx.LevelInfo 和空字符串。
// 此方法可用于搭配 LogFuncPipeline 输出带有错误描述的日志。
//
// 描述信息使用 errx.Describe() 获取。
func DescribeError(err error) (logLevel logx.Level, errTypeName, errDescription string) {
	if err == nil {
		return logx.LevelInfo, "", ""
	}

	errTypeName = getErrTypeName(err)
	errDescription = errx.Describe(err)

	// 服务端给出的业务错误，请求本身是完整的。错误可能被包装过，需沿错误链查找。
	var apiErr *ApiError
	var bizErr errx.BizError
	if errors.As(err, &apiErr) || errors.As(err, &bizErr) {
		logLevel = logx.LevelWarn
	} else {
		logLevel = logx.LevelError
	}

	return
}

func getErrTypeName(err error) string {
	// 取 error 内在的实际类型的名称。
	typ := reflect.TypeOf(err)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	name := typ.Name()

	// 如果是个公开类型（首字母大写），直接用其名称。
	if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
		return name
	}

	// 非公开的错误，如果是几个预定义且常见的，返回其接口名称。
	if _, ok := err.(errx.BizError); ok {
		return "BizError"
	}
	if _, ok := err.(errx.StackfulError); ok {
		return "StackfulError"
	}
	return name
}

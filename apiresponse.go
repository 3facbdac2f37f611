package kuggleapi

const (
	// ContentTypeJson 对应 Content-Type: application/json 的值。
	ContentTypeJson = "application/json"

	// ContentTypeForm 对应 Content-Type: application/x-www-form-urlencoded 的值。
	ContentTypeForm = "application/x-www-form-urlencoded"
)

const (
	// HttpHeaderContentType 对应 HTTP 头中的 Content-Type 字段。
	HttpHeaderContentType = "Content-Type"

	// HttpHeaderAccept 对应 HTTP 头中的 Accept 字段。
	HttpHeaderAccept = "Accept"

	// HttpHeaderAcceptLanguage 对应 HTTP 头中的 Accept-Language 字段。
	HttpHeaderAcceptLanguage = "Accept-Language"

	// HttpHeaderToken 是携带登录凭据的 HTTP 头。
	HttpHeaderToken = "Token"
)

// 回执的 meta.code 。
const (
	// CodeOK 表示请求成功。与 HTTP 状态码无关，只以 meta.code 判定。
	CodeOK = 200

	// CodeUnauthorized 表示登录凭据无效或已过期。
	CodeUnauthorized = 401

	// CodeNotFound 表示请求的资源不存在。
	CodeNotFound = 404
)

// Meta 是回执信封的 meta 部分。
type Meta struct {
	// Code 为 200 表示成功，其他值表示有错误。
	Code int `json:"code"`

	// Msg 记录描述信息，在 Code 不为 200 时描述错误。
	Msg string `json:"msg"`
}

// ApiResponse 表示 API 返回的信封结构：
//
//	{"meta": {"code": 200, "msg": "OK"}, "data": ...}
type ApiResponse[T any] struct {
	Meta Meta `json:"meta"`

	// Data 记录返回的数据本体。
	Data T `json:"data"`
}

// SuccessResponse 返回一个表示成功的 ApiResponse 。
func SuccessResponse[T any](data T) *ApiResponse[T] {
	return &ApiResponse[T]{
		Meta: Meta{Code: CodeOK, Msg: "OK"},
		Data: data,
	}
}

// ErrorResponse 返回一个表示错误的 ApiResponse ，其 data 为 null 。
func ErrorResponse(code int, msg string) *ApiResponse[any] {
	return &ApiResponse[any]{
		Meta: Meta{Code: code, Msg: msg},
	}
}

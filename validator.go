package kuggleapi

import (
	"net/http"

	"github.com/cmstar/go-errx"
)

// IsParsableStatus 判断给定的 HTTP 状态码下，是否应当尝试将 body 作为回执信封解析。
// 只有 200 、 401 、 404 会被解析，其他状态码均视为 [GeneralHttpError] 。
func IsParsableStatus(status int) bool {
	switch status {
	case http.StatusOK, http.StatusUnauthorized, http.StatusNotFound:
		return true
	}
	return false
}

// ValidateResponse 校验回执，返回解析得到的 JSON 和错误：
//   - transportErr 不为 nil 时，原样返回该错误。
//   - 状态码不是 200/401/404 时，返回 [GeneralHttpError] 。
//   - body 不是合法的 JSON 时，返回 [MalformedResponseError] 。
//   - 缺少 meta 或 meta.code/meta.msg 的类型不符时，返回 [MalformedEnvelopeError] 。
//   - meta.code 不是 200 时，返回 [ApiError] ，同时返回完整的回执。
//   - 其余情况返回回执， error 为 nil 。
func ValidateResponse(status int, body []byte, transportErr error) (Value, error) {
	if transportErr != nil {
		return Value{}, transportErr
	}

	if !IsParsableStatus(status) {
		return Value{}, &GeneralHttpError{StatusCode: status}
	}

	var v Value
	if err := v.UnmarshalJSON(body); err != nil {
		return Value{}, &MalformedResponseError{errx.ErrorCause{Err: err}}
	}

	meta, err := readMeta(v)
	if err != nil {
		return v, err
	}

	if meta.Code != CodeOK {
		return v, &ApiError{
			Code:    meta.Code,
			Message: meta.Msg,
			Body:    v,
		}
	}

	return v, nil
}

func readMeta(v Value) (Meta, error) {
	if v.Kind() != KindMap {
		return Meta{}, &MalformedEnvelopeError{"body is not an object"}
	}

	meta, ok := v.Lookup("meta")
	if !ok || meta.Kind() != KindMap {
		return Meta{}, &MalformedEnvelopeError{"missing meta"}
	}

	code, ok := meta.Get("code").AsInt()
	if !ok {
		return Meta{}, &MalformedEnvelopeError{"meta.code is not an integer"}
	}

	msg, ok := meta.Get("msg").AsString()
	if !ok {
		return Meta{}, &MalformedEnvelopeError{"meta.msg is not a string"}
	}

	return Meta{Code: int(code), Msg: msg}, nil
}

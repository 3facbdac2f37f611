package kuggleapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
)

// RequestSpec 描述构建一个请求所需的全部输入。
type RequestSpec struct {
	Method   string            // GET/POST/PUT/DELETE 。
	BaseURL  string            // 如 https://api.kuggleland.com/1/ ，与 Endpoint 直接拼接。
	Endpoint string            // 如 profile 。
	Token    string            // 登录凭据，为空时不添加 Token 头。
	Params   Params            // 请求参数，可为 nil 。
	Header   map[string]string // 附加的 HTTP 头，最后添加，可覆盖预设的值。
	Locale   string            // Accept-Language 头的值。
}

// Request 是 BuildRequest 构建得到的请求。构建完成后不应再修改。
type Request struct {
	Method string
	URL    string

	// Header 的 key 是经过 textproto.CanonicalMIMEHeaderKey 处理的 HTTP 头名称。
	Header map[string]string

	// Body 为 nil 表示请求没有 body 。
	Body []byte
}

// BuildRequest 根据 RequestSpec 构建请求，此过程不涉及网络访问：
//   - URL 为 BaseURL + Endpoint ；
//   - GET/DELETE 且有参数时，参数经 EncodeParams 编码后以“?”追加到 URL ，不设置 body ；
//   - POST/PUT 且有参数时，设置 Content-Type: application/x-www-form-urlencoded ，编码后的参数作为 body ；
//   - 总是设置 Accept: application/json 和 Accept-Language ；
//   - Token 不为空时设置 Token 头；
//   - 最后逐个设置 RequestSpec.Header ，同名的头会覆盖前面的值。
func BuildRequest(spec RequestSpec) (*Request, error) {
	rawURL := spec.BaseURL + spec.Endpoint
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("bad url %q: %w", rawURL, err)
	}

	req := &Request{
		Method: spec.Method,
		URL:    rawURL,
		Header: make(map[string]string),
	}

	encoded := EncodeParams(spec.Params)
	switch spec.Method {
	case http.MethodGet, http.MethodDelete:
		if encoded != "" {
			req.URL += "?" + encoded
		}

	case http.MethodPost, http.MethodPut:
		if encoded != "" {
			req.Header[HttpHeaderContentType] = ContentTypeForm
			req.Body = []byte(encoded)
		}

	default:
		return nil, fmt.Errorf("unsupported method %q", spec.Method)
	}

	req.Header[HttpHeaderAccept] = ContentTypeJson
	req.Header[HttpHeaderAcceptLanguage] = spec.Locale

	if spec.Token != "" {
		req.Header[HttpHeaderToken] = spec.Token
	}

	for k, v := range spec.Header {
		req.Header[textproto.CanonicalMIMEHeaderKey(k)] = v
	}

	return req, nil
}

// NewHTTPRequest 将当前请求转换为 [http.Request] 。每次调用都返回新的实例。
func (r *Request) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range r.Header {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

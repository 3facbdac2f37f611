package kuggleapi

import "net/http"

// Doer 发送 HTTP 请求并返回回执，通常是一个 [*http.Client] 。
// 连接池、 TLS 、超时等传输层的细节均由 Doer 负责，客户端不会重试。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)

// DoerFunc 将一个函数转换为 [Doer] 。
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do 实现 Doer.Do 。
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

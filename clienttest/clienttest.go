// clienttest 包提供用于测试 kuggleapi 客户端的辅助方法。
//
// [Server] 是一个基于 echo 和 httptest 的假 API 服务，可为每个 endpoint 指定回执，
// 并记录收到的全部请求，便于在测试中断言请求的内容。
package clienttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/cmstar/go-kuggleapi"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// PathPrefix 是假 API 服务的路径前缀，对应 kuggleapi.DefaultBaseURL 中的版本号部分。
const PathPrefix = "/1/"

// RecordedRequest 记录 Server 收到的一个请求。
type RecordedRequest struct {
	Method   string      // HTTP 方法。
	Path     string      // 请求的路径，如 /1/profile 。
	Endpoint string      // 去掉 PathPrefix 后的路径，如 profile 。
	RawQuery string      // 未解码的 query-string ，不包含“?”。
	Header   http.Header // 请求头。
	Body     []byte      // 请求的 body ，没有 body 时为空。
}

// QueryPairs 按原有顺序解析 RawQuery 。
func (r RecordedRequest) QueryPairs() ([]kuggleapi.QueryPair, error) {
	return kuggleapi.ParseEncoded(r.RawQuery)
}

// BodyPairs 按原有顺序解析表单格式的 body 。
func (r RecordedRequest) BodyPairs() ([]kuggleapi.QueryPair, error) {
	return kuggleapi.ParseEncoded(string(r.Body))
}

// Server 是一个假的 API 服务。使用 NewServer 创建，使用完毕后需调用 Close 。
type Server struct {
	*httptest.Server

	// Echo 是处理请求的 echo 实例，可直接在其上注册路由。
	Echo *echo.Echo

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewServer 创建并启动一个 Server 。处理函数中的 panic 被转换为 HTTP 500 回执。
func NewServer() *Server {
	s := &Server{
		Echo: echo.New(),
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.record)
	s.Server = httptest.NewServer(s.Echo)
	return s
}

// BaseURL 返回可用于 kuggleapi.Options.BaseURL 的地址，以“/”结尾。
func (s *Server) BaseURL() string {
	return s.URL + PathPrefix
}

// Handle 为给定的方法和 endpoint 注册处理函数。
func (s *Server) Handle(method, endpoint string, h echo.HandlerFunc) {
	s.Echo.Add(method, PathPrefix+strings.TrimPrefix(endpoint, "/"), h)
}

// Envelope 注册一个处理函数，总是以 HTTP 200 返回由给定的 code 、 msg 、 data 组成的回执信封。
func (s *Server) Envelope(method, endpoint string, code int, msg string, data any) {
	s.EnvelopeStatus(method, endpoint, http.StatusOK, code, msg, data)
}

// EnvelopeStatus 同 Envelope ，但使用给定的 HTTP 状态码。
func (s *Server) EnvelopeStatus(method, endpoint string, status, code int, msg string, data any) {
	s.Handle(method, endpoint, func(c echo.Context) error {
		return c.JSON(status, NewEnvelope(code, msg, data))
	})
}

// Raw 注册一个处理函数，总是返回给定的状态码和 body 。
func (s *Server) Raw(method, endpoint string, status int, contentType, body string) {
	s.Handle(method, endpoint, func(c echo.Context) error {
		return c.Blob(status, contentType, []byte(body))
	})
}

// Requests 返回已收到的全部请求，按收到的顺序排列。
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]RecordedRequest, len(s.requests))
	copy(res, s.requests)
	return res
}

// LastRequest 返回最后收到的请求。没有请求时返回 false 。
func (s *Server) LastRequest() (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// record 是 echo 中间件，记录请求后交给后续的处理函数。 body 被读取后重新放回请求上。
func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		var body []byte
		if req.Body != nil {
			var err error
			body, err = io.ReadAll(req.Body)
			if err != nil {
				return err
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:   req.Method,
			Path:     req.URL.Path,
			Endpoint: strings.TrimPrefix(req.URL.Path, PathPrefix),
			RawQuery: req.URL.RawQuery,
			Header:   req.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()

		return next(c)
	}
}

// NewEnvelope 返回一个回执信封。
func NewEnvelope(code int, msg string, data any) *kuggleapi.ApiResponse[any] {
	return &kuggleapi.ApiResponse[any]{
		Meta: kuggleapi.Meta{Code: code, Msg: msg},
		Data: data,
	}
}

// EnvelopeJSON 返回回执信封的 JSON 文本。
func EnvelopeJSON(code int, msg string, data any) string {
	b, err := json.Marshal(NewEnvelope(code, msg, data))
	if err != nil {
		panic(err)
	}
	return string(b)
}

// kuggleapi 包提供 Kuggle API 的客户端。
//
// 客户端负责构建请求（URL 、 HTTP 头、 body ），将参数编码为规范化的 query-string ，
// 发送请求，校验回执信封 {"meta":{"code":..,"msg":..},"data":..} ，
// 并通过 credstore 包维护登录凭据（ Token ）的生命周期。
package kuggleapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"time"

	"github.com/cmstar/go-errx"
	"github.com/cmstar/go-kuggleapi/credstore"
	"github.com/cmstar/go-logx"
)

// DefaultBaseURL 是 API 的默认地址。 endpoint 直接拼接在其后。
const DefaultBaseURL = "https://api.kuggleland.com/1/"

// DefaultMaxResponseSize 是默认允许读取的回执 body 的最大字节数。
const DefaultMaxResponseSize = 10 << 20

// 不解析 body 的状态码（见 IsParsableStatus ），最多读取并丢弃这么多字节，以便连接可被复用。
const discardLimit = 64 << 10

// ErrResponseTooLarge 表示回执 body 超过了 Options.MaxResponseSize ，它作为 [TransportError] 的原因返回。
var ErrResponseTooLarge = errors.New("response body too large")

// Options 用于初始化 [Client] 。各字段均可为零值，此时使用对应的默认值。
type Options struct {
	// BaseURL 是 API 的地址，为空时使用 DefaultBaseURL 。
	BaseURL string

	// Doer 用于发送 HTTP 请求，为 nil 时使用 http.DefaultClient 。
	Doer Doer

	// Store 用于存储登录凭据，为 nil 时使用一个新的 credstore.MemoryStore 。
	Store credstore.Store

	// TokenAccessibility 是写入新签发的 Token 时使用的策略，零值即 credstore.DefaultAccessibility 。
	TokenAccessibility credstore.Accessibility

	// Locale 提供 Accept-Language 头的值，为 nil 时使用 EnvLocale 。
	Locale LocaleProvider

	// Logger 用于输出每次调用的日志，为 nil 时不输出。
	Logger logx.Logger

	// LogPipeline 决定日志的内容，为 nil 时仅输出请求和错误的基本信息。
	// logfunc 包提供了一组预定义的 LogFunc 。
	LogPipeline CallLogger

	// RequestSetup 若不为 nil ，则在发送请求之前，调用此函数对当前请求进行处理，如添加签名。
	// 若返回错误，则请求不会被发送。
	RequestSetup func(r *http.Request) error

	// Header 是每个请求都会附加的 HTTP 头，可以覆盖预设的头。
	Header map[string]string

	// MaxResponseSize 是允许读取的回执 body 的最大字节数，不大于 0 时使用 DefaultMaxResponseSize 。
	MaxResponseSize int64
}

// Call 描述一次 API 调用。
type Call struct {
	Method   string            // GET/POST/PUT/DELETE 。
	Endpoint string            // 如 profile 。
	Params   Params            // 请求参数，可为 nil 。
	Token    string            // 显式指定的 Token ，为空时从凭据存储读取。
	Header   map[string]string // 本次调用附加的 HTTP 头，优先于 Options.Header 。
}

// CallOption 用于调整 [Client.Get] 等方法发起的调用。
type CallOption func(c *Call)

// WithToken 使用给定的 Token ，而不是从凭据存储中读取。
func WithToken(token string) CallOption {
	return func(c *Call) {
		c.Token = token
	}
}

// WithHeader 为本次调用附加一个 HTTP 头。
func WithHeader(key, value string) CallOption {
	return func(c *Call) {
		if c.Header == nil {
			c.Header = make(map[string]string)
		}
		c.Header[key] = value
	}
}

// Result 是异步调用的结果。 Body 和 Err 的含义与 [Client.Do] 的返回值一致。
type Result struct {
	Body Value
	Err  error
}

// Client 是 API 的客户端，可被多个 goroutine 并发使用。
// 每次调用相互独立，在发送请求时读取一次当前的 Token 。客户端不会自动重试。
type Client struct {
	baseURL      string
	doer         Doer
	store        credstore.Store
	tokenAccess  credstore.Accessibility
	locale       LocaleProvider
	logger       logx.Logger
	logPipeline  CallLogger
	requestSetup func(r *http.Request) error
	header       map[string]string
	maxBody      int64
}

// NewClient 创建一个 [Client] 。
func NewClient(op Options) *Client {
	c := &Client{
		baseURL:      op.BaseURL,
		doer:         op.Doer,
		store:        op.Store,
		tokenAccess:  op.TokenAccessibility,
		locale:       op.Locale,
		logger:       op.Logger,
		logPipeline:  op.LogPipeline,
		requestSetup: op.RequestSetup,
		header:       make(map[string]string, len(op.Header)),
		maxBody:      op.MaxResponseSize,
	}

	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxResponseSize
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}

	if c.doer == nil {
		c.doer = http.DefaultClient
	}

	if c.store == nil {
		c.store = credstore.NewMemoryStore()
	}

	if c.locale == nil {
		c.locale = EnvLocale
	}

	if c.logPipeline == nil {
		c.logPipeline = basicLogPipeline
	}

	for k, v := range op.Header {
		c.header[textproto.CanonicalMIMEHeaderKey(k)] = v
	}

	return c
}

// BaseURL 返回 API 的地址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store 返回客户端使用的凭据存储。
func (c *Client) Store() credstore.Store {
	return c.store
}

// Token 返回凭据存储中的 Token 。没有时返回 false 。
func (c *Client) Token() (string, bool) {
	return credstore.GetString(c.store, TokenKey)
}

// Logout 删除凭据存储中的 Token ，返回删除是否成功。没有 Token 时也返回 true 。
func (c *Client) Logout() bool {
	return c.store.Delete(TokenKey)
}

// Get 发起 GET 请求。
func (c *Client) Get(ctx context.Context, endpoint string, params Params, opts ...CallOption) (Value, error) {
	return c.Do(ctx, newCall(http.MethodGet, endpoint, params, opts))
}

// Post 发起 POST 请求。若调用成功且回执的顶层带有 token 字段，其值被写入凭据存储。
func (c *Client) Post(ctx context.Context, endpoint string, params Params, opts ...CallOption) (Value, error) {
	return c.Do(ctx, newCall(http.MethodPost, endpoint, params, opts))
}

// Put 发起 PUT 请求。
func (c *Client) Put(ctx context.Context, endpoint string, params Params, opts ...CallOption) (Value, error) {
	return c.Do(ctx, newCall(http.MethodPut, endpoint, params, opts))
}

// Delete 发起 DELETE 请求。
func (c *Client) Delete(ctx context.Context, endpoint string, params Params, opts ...CallOption) (Value, error) {
	return c.Do(ctx, newCall(http.MethodDelete, endpoint, params, opts))
}

func newCall(method, endpoint string, params Params, opts []CallOption) Call {
	call := Call{
		Method:   method,
		Endpoint: endpoint,
		Params:   params,
	}
	for _, opt := range opts {
		opt(&call)
	}
	return call
}

// Do 执行一次调用，返回解析得到的回执和错误。
//
// 错误的类型见 [ValidateResponse] ，未能得到 HTTP 回执时为 [TransportError] ，
// 无法构建请求时返回 BuildRequest 的错误， Options.RequestSetup 返回的错误以 errx.Wrap 包装后返回，
// 这两种情况下请求不会被发送。
// 当错误是 [ApiError] 时，返回的回执不是 null ，调用方仍可读取其内容。
//
// 调用完成后：
//   - 若调用 profile 得到 401 错误，删除凭据存储中的 Token ；
//   - 若 POST 调用成功且回执的顶层带有 token 字段，将其写入凭据存储。
func (c *Client) Do(ctx context.Context, call Call) (Value, error) {
	state := &CallState{
		Method:   call.Method,
		Endpoint: call.Endpoint,
		Logger:   c.logger,
	}

	start := time.Now()
	body, err := c.do(ctx, call, state)
	applyTokenPolicy(c.store, c.tokenAccess, state, call.Method, body, err)
	state.Duration = time.Since(start)

	state.Body = body
	state.Error = err
	c.logPipeline.Log(state)

	return body, err
}

// Go 异步执行一次调用。返回的 channel 恰好收到一个结果，随后被关闭。
func (c *Client) Go(ctx context.Context, call Call) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		body, err := c.Do(ctx, call)
		ch <- Result{Body: body, Err: err}
	}()
	return ch
}

// Callback 异步执行一次调用，调用完成后 f 恰好被调用一次。 f 在一个新的 goroutine 中执行。
func (c *Client) Callback(ctx context.Context, call Call, f func(body Value, err error)) {
	go func() {
		body, err := c.Do(ctx, call)
		f(body, err)
	}()
}

func (c *Client) do(ctx context.Context, call Call, state *CallState) (Value, error) {
	token := call.Token
	if token == "" {
		token, _ = credstore.GetString(c.store, TokenKey)
	}
	state.TokenFingerprint = credstore.Fingerprint([]byte(token))

	header := make(map[string]string, len(c.header)+len(call.Header))
	for k, v := range c.header {
		header[k] = v
	}
	for k, v := range call.Header {
		header[textproto.CanonicalMIMEHeaderKey(k)] = v
	}

	req, err := BuildRequest(RequestSpec{
		Method:   call.Method,
		BaseURL:  c.baseURL,
		Endpoint: call.Endpoint,
		Token:    token,
		Params:   call.Params,
		Header:   header,
		Locale:   c.locale.Locale(),
	})
	if err != nil {
		return Value{}, err
	}
	state.Request = req
	state.URL = req.URL

	httpReq, err := req.NewHTTPRequest(ctx)
	if err != nil {
		return Value{}, err
	}

	if c.requestSetup != nil {
		if err := c.requestSetup(httpReq); err != nil {
			return Value{}, errx.Wrap("request setup", err)
		}
	}

	status, data, transportErr := c.send(httpReq)
	state.StatusCode = status
	return ValidateResponse(status, data, transportErr)
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, nil, &TransportError{errx.ErrorCause{Err: err}}
	}
	defer resp.Body.Close()

	if !IsParsableStatus(resp.StatusCode) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, discardLimit))
		return resp.StatusCode, nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{errx.ErrorCause{Err: err}}
	}
	if int64(len(data)) > c.maxBody {
		err = fmt.Errorf("%w: exceeds %d bytes", ErrResponseTooLarge, c.maxBody)
		return resp.StatusCode, nil, &TransportError{errx.ErrorCause{Err: err}}
	}
	return resp.StatusCode, data, nil
}

/*
signauth 为 API 请求提供 HMAC-SHA256 签名。

每个调用者会被分配到一组配对的 key-secret ， key 用于标识调用者的身份， secret 用于生成签名。
签名信息放在 Authorization 头，格式为：

	Authorization: KUGGLE-AUTH Key={key}, Sign={sign}, Timestamp={timestamp}, Version=1

除开头的 scheme 部分外，其余各参数由逗号隔开，顺序不做要求，参数名称前的空白字符会被忽略。
Version 可省略，省略时默认为 1 。

# 签名算法

字符集统一使用 UTF-8 。签名使用 HMAC-SHA256 算法，通过 secret 对待签名串进行哈希计算得到，结果为小写的 HEX 。
待签名串的各部分用换行符（\n）分割：

	TIMESTAMP
	METHOD
	PATH
	QUERY_VALUES
	BODY_VALUES (仅 POST/PUT)
	END

  - PATH 没有路径部分时，使用“/”。
  - QUERY_VALUES 将 query-string 的参数按名称的字节顺序稳定排序，然后将参数值紧密拼接；
    参数没有值时，用参数名称代替值拼入。
  - BODY_VALUES 的 body 必须是表单格式，处理方式同 QUERY_VALUES ； body 为空时此行为空。

参数按 kuggleapi.ParseEncoded 的方式解码，“+”不会被当做空格。

Signer 可直接用作 kuggleapi.Options.RequestSetup ，服务端使用 Verify 校验。
*/
package signauth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cmstar/go-kuggleapi"
)

const (
	// DefaultAuthScheme 是 Authorization 头的默认 scheme 。
	DefaultAuthScheme = "KUGGLE-AUTH"

	// DefaultSignVersion 是当前的签名算法版本。
	DefaultSignVersion = 1

	// HttpHeaderAuthorization 对应 HTTP 的 Authorization 头。
	HttpHeaderAuthorization = "Authorization"

	// DefaultMaxDeviation 是 Verify 默认允许的时间戳误差。
	DefaultMaxDeviation = 5 * time.Minute
)

// Authorization 记录 Authorization 头的内容。
type Authorization struct {
	AuthScheme string // Authorization 头最前面的 Scheme 部分。
	Key        string // 请求方的标识。
	Sign       string // 签名。
	Timestamp  int64  // 生成签名时的 UNIX 时间戳，单位是秒。
	Version    int    // 算法版本。在 Authorization 头未给出时，默认为 [DefaultSignVersion] 。
}

// BuildAuthorizationHeader 返回用于 HTTP 的 Authorization 头的值。
//   - 若 [Authorization.Version] 为 0 ，则 Version 部分被省略。
//   - 若 [Authorization.AuthScheme] 为空，则使用默认值 [DefaultAuthScheme] 。
func BuildAuthorizationHeader(auth Authorization) string {
	b := new(strings.Builder)
	if auth.AuthScheme == "" {
		b.WriteString(DefaultAuthScheme)
	} else {
		b.WriteString(auth.AuthScheme)
	}

	b.WriteString(" Key=")
	b.WriteString(auth.Key)

	b.WriteString(", Sign=")
	b.WriteString(auth.Sign)

	b.WriteString(", Timestamp=")
	b.WriteString(strconv.FormatInt(auth.Timestamp, 10))

	if auth.Version != 0 {
		b.WriteString(", Version=")
		b.WriteString(strconv.Itoa(auth.Version))
	}

	return b.String()
}

// ParseAuthorizationHeader 解析 Authorization 头。
// authScheme 为空时使用 [DefaultAuthScheme] ，头中的 scheme 必须与之一致。
func ParseAuthorizationHeader(r *http.Request, authScheme string) (Authorization, error) {
	auth := Authorization{}

	headers, ok := r.Header[HttpHeaderAuthorization]
	if !ok {
		return auth, errors.New("missing the Authorization header")
	}

	if len(headers) > 1 {
		return auth, errors.New("more than one Authorization headers found")
	}

	// Read <Scheme> part.
	header := headers[0]
	idx := strings.Index(header, " ")
	if idx <= 0 {
		return auth, errors.New("Authorization scheme error")
	}

	if authScheme == "" {
		authScheme = DefaultAuthScheme
	}

	scheme := header[:idx]
	if scheme != authScheme {
		return auth, errors.New("Authorization scheme error")
	}
	auth.AuthScheme = scheme

	// Read params.
	hasVersion := false
	for _, part := range strings.Split(header[idx+1:], ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")

		switch k {
		case "Key":
			auth.Key = v

		case "Sign":
			auth.Sign = v

		case "Version":
			ver, err := strconv.Atoi(v)
			if err != nil {
				return auth, fmt.Errorf("Authorization version error: %w", err)
			}
			auth.Version = ver
			hasVersion = true

		case "Timestamp":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return auth, fmt.Errorf("Authorization timestamp error: %w", err)
			}
			auth.Timestamp = ts
		}
	}

	if !hasVersion {
		auth.Version = DefaultSignVersion
	}

	return auth, nil
}

// HmacSha256 计算 hmac-sha256 ，返回小写的 HEX 格式。
func HmacSha256(secret, data []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Sign 计算给定的请求的签名。请求的 body 被读取后会被替换为新的、可重读的 [bytes.Reader] 。
func Sign(r *http.Request, secret string, timestamp int64) (string, error) {
	data, err := BuildDataToSign(r, timestamp)
	if err != nil {
		return "", err
	}
	return HmacSha256([]byte(secret), data), nil
}

// BuildDataToSign 构建待签名串，格式见包的说明。
// 请求的 body 被读取后会被替换为新的、可重读的 [bytes.Reader] 。
func BuildDataToSign(r *http.Request, timestamp int64) ([]byte, error) {
	buf := new(bytes.Buffer)

	// TIMESTAMP
	buf.WriteString(strconv.FormatInt(timestamp, 10))
	buf.WriteByte('\n')

	// METHOD
	buf.WriteString(r.Method)
	buf.WriteByte('\n')

	// PATH
	if r.URL.Path == "" {
		buf.WriteByte('/')
	} else {
		buf.WriteString(r.URL.Path)
	}
	buf.WriteByte('\n')

	// QUERY
	if err := appendValuesWithNewLine(buf, r.URL.RawQuery); err != nil {
		return nil, fmt.Errorf("bad query: %w", err)
	}

	// BODY
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		body, err := repeatableReadBody(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		if len(body) > 0 {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get(kuggleapi.HttpHeaderContentType))
			if err != nil || mediaType != kuggleapi.ContentTypeForm {
				return nil, fmt.Errorf("unsupported Content-Type: %q", r.Header.Get(kuggleapi.HttpHeaderContentType))
			}
		}

		if err := appendValuesWithNewLine(buf, string(body)); err != nil {
			return nil, fmt.Errorf("bad body: %w", err)
		}
	}

	// END
	buf.WriteString("END")

	return buf.Bytes(), nil
}

func appendValuesWithNewLine(buf *bytes.Buffer, encoded string) error {
	pairs, err := kuggleapi.ParseEncoded(encoded)
	if err != nil {
		return err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})

	for _, p := range pairs {
		if p.Value == "" {
			buf.WriteString(p.Key)
		} else {
			buf.WriteString(p.Value)
		}
	}
	buf.WriteByte('\n')
	return nil
}

// 读取整个 [http.Request.Body] 并返回读取到数据。 Body 为 nil 时返回 nil 。
// 读取完毕后，原 body 会被关闭， Body 字段被替换为新的、未被读取的 [bytes.Reader] 。
func repeatableReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	if err := r.Body.Close(); err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// Signer 为请求添加 Authorization 头。
type Signer struct {
	Key        string // 对应 Authorization 头中的 Key 字段的值。
	Secret     string // HMAC-SHA256 的密钥。
	AuthScheme string // 为空时使用 DefaultAuthScheme 。

	// Now 返回当前时间，为 nil 时使用 time.Now 。
	Now func() time.Time
}

// NewSigner 创建一个 Signer 。
func NewSigner(key, secret string) *Signer {
	return &Signer{Key: key, Secret: secret}
}

// Setup 计算请求的签名，并将其赋值到请求的 Authorization 头。
// 签名方法的签名与 kuggleapi.Options.RequestSetup 一致。
func (s *Signer) Setup(r *http.Request) error {
	if s.Key == "" || s.Secret == "" {
		return errors.New("signing key and secret must be provided")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	timestamp := now().Unix()

	sign, err := Sign(r, s.Secret, timestamp)
	if err != nil {
		return err
	}

	r.Header.Set(HttpHeaderAuthorization, BuildAuthorizationHeader(Authorization{
		AuthScheme: s.AuthScheme,
		Key:        s.Key,
		Sign:       sign,
		Timestamp:  timestamp,
		Version:    DefaultSignVersion,
	}))
	return nil
}

// VerifyOption 用于 Verify 。
type VerifyOption struct {
	// AuthScheme 为空时使用 DefaultAuthScheme 。
	AuthScheme string

	// FindSecret 根据 key 返回对应的 secret 。返回空字符串表示 key 无效。
	FindSecret func(key string) string

	// MaxDeviation 是时间戳与当前时间允许的最大误差。为 0 时使用 DefaultMaxDeviation ，为负数时不校验。
	MaxDeviation time.Duration

	// Now 返回当前时间，为 nil 时使用 time.Now 。
	Now func() time.Time
}

// Verify 校验请求的签名，成功时返回解析得到的 Authorization 。
func Verify(r *http.Request, op VerifyOption) (Authorization, error) {
	auth, err := ParseAuthorizationHeader(r, op.AuthScheme)
	if err != nil {
		return auth, err
	}

	if auth.Version != DefaultSignVersion {
		return auth, fmt.Errorf("unsupported signature version %d", auth.Version)
	}

	maxDeviation := op.MaxDeviation
	if maxDeviation == 0 {
		maxDeviation = DefaultMaxDeviation
	}
	if maxDeviation > 0 {
		now := time.Now
		if op.Now != nil {
			now = op.Now
		}

		d := now().Sub(time.Unix(auth.Timestamp, 0))
		if d < 0 {
			d = -d
		}
		if d > maxDeviation {
			return auth, fmt.Errorf("the deviation of time should be less than %v, got timestamp %d", maxDeviation, auth.Timestamp)
		}
	}

	var secret string
	if op.FindSecret != nil {
		secret = op.FindSecret(auth.Key)
	}
	if secret == "" {
		return auth, fmt.Errorf("unknown key %q", auth.Key)
	}

	sign, err := Sign(r, secret, auth.Timestamp)
	if err != nil {
		return auth, err
	}

	if !hmac.Equal([]byte(sign), []byte(auth.Sign)) {
		return auth, errors.New("signature mismatch")
	}
	return auth, nil
}

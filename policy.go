package kuggleapi

import (
	"net/http"
	"strings"

	"github.com/cmstar/go-kuggleapi/credstore"
)

/*
当前文件定义 API 调用完成后，针对特定回执对凭据存储产生的副作用。
*/

// TokenKey 是登录凭据在 credstore.Store 中的 key 。
const TokenKey = "token"

// ProfileEndpoint 是获取当前用户信息的 API 。若调用此 API 时得到 401 错误，说明当前的 Token 已失效。
const ProfileEndpoint = "profile"

// IsProfileEndpoint 判断给定的 endpoint 是否是 [ProfileEndpoint] 。首尾的“/”被忽略。
func IsProfileEndpoint(endpoint string) bool {
	return strings.Trim(endpoint, "/") == ProfileEndpoint
}

// ExtractIssuedToken 从回执的顶层读取新签发的 Token 。
// 仅当回执是一个 JSON 对象，且其 token 字段是非空字符串时返回 true 。
func ExtractIssuedToken(body Value) (string, bool) {
	token, ok := body.Get(TokenKey).AsString()
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// ShouldEvictToken 判断调用 endpoint 得到的错误是否意味着已存储的 Token 失效：
// 仅 [ProfileEndpoint] 返回状态码 401 （ meta.code 或 HTTP 状态码）时返回 true 。
func ShouldEvictToken(endpoint string, err error) bool {
	if err == nil || !IsProfileEndpoint(endpoint) {
		return false
	}
	code, ok := StatusCode(err)
	return ok && code == CodeUnauthorized
}

// applyTokenPolicy 根据调用的结果更新凭据存储，并将结果记录到 state 。
func applyTokenPolicy(store credstore.Store, access credstore.Accessibility, state *CallState, method string, body Value, err error) {
	if ShouldEvictToken(state.Endpoint, err) {
		state.TokenEvicted = store.Delete(TokenKey)
		return
	}

	if err != nil || method != http.MethodPost {
		return
	}

	if token, ok := ExtractIssuedToken(body); ok {
		state.TokenIssued = credstore.SetString(store, TokenKey, token, access)
	}
}

package kuggleapi

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cmstar/go-errx"
	"github.com/cmstar/go-logx"
	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	e := &TransportError{errx.ErrorCause{Err: context.DeadlineExceeded}}
	assert.Equal(t, "transport: context deadline exceeded", e.Error())
	assert.True(t, errors.Is(e, context.DeadlineExceeded))
}

func TestApiError(t *testing.T) {
	e := &ApiError{Code: 403, Message: "Forbidden"}
	assert.Equal(t, "(403) Forbidden", e.Error())
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"plain", errors.New("e"), 0, false},
		{"ApiError", &ApiError{Code: 401}, 401, true},
		{"wrapped-ApiError", fmt.Errorf("w: %w", &ApiError{Code: 404}), 404, true},
		{"GeneralHttpError", &GeneralHttpError{StatusCode: 502}, 502, true},
		{"MalformedEnvelopeError", &MalformedEnvelopeError{"x"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StatusCode(tt.err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantLevel       logx.Level
		wantName        string
		wantDescPattern []string
	}{
		{
			"nil",
			nil,
			logx.LevelInfo,
			"",
			[]string{},
		},

		{
			"normal",
			errors.New("e"),
			logx.LevelError,
			"errorString",
			[]string{"e"},
		},

		{
			"ApiError",
			&ApiError{Code: 403, Message: "Forbidden"},
			logx.LevelWarn,
			"ApiError",
			[]string{`\(403\) Forbidden`},
		},

		{
			"GeneralHttpError",
			&GeneralHttpError{StatusCode: 500},
			logx.LevelError,
			"GeneralHttpError",
			[]string{`status 500`},
		},

		{
			"TransportError",
			&TransportError{errx.ErrorCause{Err: errors.New("refused")}},
			logx.LevelError,
			"TransportError",
			[]string{`^transport: refused`},
		},

		{
			"wrapped-ApiError",
			fmt.Errorf("POST login: %w", &ApiError{Code: 403, Message: "Forbidden"}),
			logx.LevelWarn,
			"wrapError",
			[]string{`POST login: \(403\) Forbidden`},
		},

		{
			"wrapped-TransportError",
			fmt.Errorf("call: %w", &TransportError{errx.ErrorCause{Err: errors.New("refused")}}),
			logx.LevelError,
			"wrapError",
			[]string{`transport: refused`},
		},

		{
			"MalformedEnvelopeError",
			&MalformedEnvelopeError{Reason: "missing meta"},
			logx.LevelError,
			"MalformedEnvelopeError",
			[]string{`missing meta`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv, name, desc := DescribeError(tt.err)
			assert.Equal(t, logx.LevelToString(tt.wantLevel), logx.LevelToString(lv))
			assert.Equal(t, tt.wantName, name)

			for _, p := range tt.wantDescPattern {
				assert.Regexp(t, p, desc)
			}
		})
	}
}

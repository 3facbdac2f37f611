package kuggleapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponse(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		got := SuccessResponse(1)
		assert.Equal(t, 200, got.Meta.Code)
		assert.Equal(t, "OK", got.Meta.Msg)
		assert.Equal(t, 1, got.Data)
	})

	t.Run("struct", func(t *testing.T) {
		data := struct {
			X int `json:"x"`
		}{1}
		got := SuccessResponse(data)

		b, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"meta":{"code":200,"msg":"OK"},"data":{"x":1}}`, string(b))
	})
}

func TestErrorResponse(t *testing.T) {
	got := ErrorResponse(403, "Forbidden")
	assert.Equal(t, 403, got.Meta.Code)
	assert.Equal(t, "Forbidden", got.Meta.Msg)
	assert.Equal(t, nil, got.Data)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta":{"code":403,"msg":"Forbidden"},"data":null}`, string(b))
}

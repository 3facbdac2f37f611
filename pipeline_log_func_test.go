package kuggleapi

import (
	"testing"

	"github.com/cmstar/go-logx"
	"github.com/cmstar/go-logx/logxtest"
	"github.com/stretchr/testify/assert"
)

func TestLogFuncPipeline(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p := NewLogFuncPipeline()
		p.Log(&CallState{}) // Nothing happens.
	})

	t.Run("no-logger", func(t *testing.T) {
		called := false
		p := NewLogFuncPipeline(func(state *CallState) { called = true })
		p.Log(&CallState{})
		assert.False(t, called)
	})

	t.Run("values", func(t *testing.T) {
		f1 := func(state *CallState) {
			state.LogMessage = append(state.LogMessage, "K1", "V1")
			state.LogMessage = append(state.LogMessage, "K2", "V2")
		}

		f2 := func(state *CallState) {
			state.LogLevel = logx.LevelWarn
			state.LogMessage = append(state.LogMessage, "K3", "V3")
		}

		p := NewLogFuncPipeline(f1, f2)
		logger := logxtest.NewRecorder()
		p.Log(&CallState{Logger: logger})

		assert.Len(t, logger.Messages, 1)
		msg := logger.Messages[0]
		assert.Equal(t, logx.LevelWarn, msg.Level)
		assert.Equal(t, []any{"K1", "V1", "K2", "V2", "K3", "V3"}, msg.KeyValues)
	})

	t.Run("default-level", func(t *testing.T) {
		f1 := func(state *CallState) {
			state.LogMessage = append(state.LogMessage, "K", "V")
		}

		p := NewLogFuncPipeline(f1)
		logger := logxtest.NewRecorder()
		p.Log(&CallState{Logger: logger})

		assert.Len(t, logger.Messages, 1)
		msg := logger.Messages[0]
		assert.Equal(t, logx.LevelInfo, msg.Level)
		assert.Equal(t, []any{"K", "V"}, msg.KeyValues)
	})
}

func TestBasicLogPipeline(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		logger := logxtest.NewRecorder()
		basicLogPipeline.Log(&CallState{
			Logger:     logger,
			Method:     "GET",
			Endpoint:   "profile",
			StatusCode: 200,
		})

		assert.Len(t, logger.Messages, 1)
		msg := logger.Messages[0]
		assert.Equal(t, logx.LevelInfo, msg.Level)
		assert.Equal(t, []any{"Method", "GET", "Endpoint", "profile", "Status", 200}, msg.KeyValues)
	})

	t.Run("error", func(t *testing.T) {
		logger := logxtest.NewRecorder()
		basicLogPipeline.Log(&CallState{
			Logger:   logger,
			Method:   "POST",
			Endpoint: "login",
			Error:    &GeneralHttpError{StatusCode: 500},
		})

		assert.Len(t, logger.Messages, 1)
		msg := logger.Messages[0]
		assert.Equal(t, logx.LevelError, msg.Level)
		assert.Equal(t, "Error", msg.KeyValues[4])
		assert.Contains(t, msg.KeyValues[5], "500")
	})
}

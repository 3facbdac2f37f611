package kuggleapi

import "github.com/cmstar/go-logx"

// LogFunc 定义一个过程，此过程用于从 [CallState] 读取信息，填充 [CallState.LogMessage] 。
type LogFunc func(state *CallState)

// LogFuncPipeline 是 [LogFunc] 组成的管道，实现 [CallLogger] 。
//
// 在 [CallLogger.Log] 时，依次执行每个 [LogFunc] ，并将得到的 [CallState.LogMessage] 输出到日志。
// 若 [LogLevel] 未被设置，默认使用 [logx.LevelInfo] 级别。
type LogFuncPipeline []LogFunc

var _ CallLogger = (*LogFuncPipeline)(nil)

// NewLogFuncPipeline 返回一个 [LogFuncPipeline] 。
func NewLogFuncPipeline(fs ...LogFunc) LogFuncPipeline {
	return LogFuncPipeline(fs)
}

// Log implements [CallLogger.Log].
func (p LogFuncPipeline) Log(state *CallState) {
	logger := state.Logger
	if logger == nil || len(p) == 0 {
		return
	}

	for _, f := range p {
		f(state)
	}

	lv := state.LogLevel
	if state.LogLevel == 0 {
		lv = logx.LevelInfo
	}

	logger.Log(lv, "", state.LogMessage...)
}

// basicLogPipeline 是 [Options.LogPipeline] 未指定时使用的管道，仅输出请求和错误的基本信息。
// 更多的输出字段见 logfunc 包。
var basicLogPipeline = NewLogFuncPipeline(func(state *CallState) {
	state.LogMessage = append(state.LogMessage, "Method", state.Method, "Endpoint", state.Endpoint)

	if state.StatusCode != 0 {
		state.LogMessage = append(state.LogMessage, "Status", state.StatusCode)
	}

	if state.Error != nil {
		lv, _, desc := DescribeError(state.Error)
		state.LogLevel = lv
		state.LogMessage = append(state.LogMessage, "Error", desc)
	}
})

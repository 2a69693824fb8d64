package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// SendSSEChunk 发送Server-Sent Events数据块
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("failed to marshal sse payload", zap.Error(err))
		return
	}

	if _, err := w.Write([]byte("data: ")); err != nil {
		zap.L().Debug("failed to write sse prefix", zap.Error(err))
		return
	}
	if _, err := w.Write(data); err != nil {
		zap.L().Debug("failed to write sse payload", zap.Error(err))
		return
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		zap.L().Debug("failed to write sse terminator", zap.Error(err))
		return
	}
	flusher.Flush()
}

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

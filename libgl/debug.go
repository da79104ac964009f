package libgl

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
)

func setObjectLabel(namespace, id uint32, label string) {
	if label == "" {
		return
	}
	bytes := []byte(label)
	gl.ObjectLabel(namespace, id, int32(len(bytes)), (*uint8)(unsafe.Pointer(&bytes[0])))
}

var debugSources = map[uint32]string{
	gl.DEBUG_SOURCE_API:             "api",
	gl.DEBUG_SOURCE_WINDOW_SYSTEM:   "window system",
	gl.DEBUG_SOURCE_SHADER_COMPILER: "shader compiler",
	gl.DEBUG_SOURCE_THIRD_PARTY:     "third party",
	gl.DEBUG_SOURCE_APPLICATION:     "application",
	gl.DEBUG_SOURCE_OTHER:           "other",
}

var debugTypes = map[uint32]string{
	gl.DEBUG_TYPE_ERROR:               "error",
	gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR: "deprecated",
	gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:  "undefined",
	gl.DEBUG_TYPE_PORTABILITY:         "portability",
	gl.DEBUG_TYPE_PERFORMANCE:         "performance",
	gl.DEBUG_TYPE_MARKER:              "marker",
	gl.DEBUG_TYPE_OTHER:               "other",
}

func debugLevel(severity uint32) slog.Level {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		return slog.LevelError
	case gl.DEBUG_SEVERITY_MEDIUM:
		return slog.LevelWarn
	case gl.DEBUG_SEVERITY_LOW:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// EnableDebugOutput forwards driver debug messages to log. The context must
// have been created with the debug flag for messages to arrive.
func EnableDebugOutput(log *slog.Logger) {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		log.Log(context.Background(), debugLevel(severity), message,
			"source", debugSources[source], "type", debugTypes[gltype], "id", id)
	}, nil)
}

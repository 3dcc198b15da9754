package render

import (
	"source-weaver/internal/common"
)

// writeDebugUnformatted writes unformatted code to a sidecar file next to the
// intended output. This is best-effort and should never make generation fail
// harder.
func writeDebugUnformatted(path string, content []byte) string {
	if path == "" {
		return ""
	}

	debugPath := path + ".unformatted"
	if _, err := common.WriteFileAtomic(debugPath, content); err != nil {
		return ""
	}

	return debugPath
}

package logger

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldAudioPath = "audio_path"
	FieldProvider  = "provider"
	FieldOperation = "operation"
	FieldDuration  = "duration_ms"
	FieldSpeakers  = "speakers"
	FieldSegments  = "segments"
	FieldPercent   = "percent"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("aligned", logger.Fields("segments", 12, "speakers", 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

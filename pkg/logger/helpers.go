package logger

// LogHTTPRequest logs a served HTTP request at a level matching its status
func LogHTTPRequest(l Logger, method, path string, statusCode int, durationMs float64, requestID string) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": durationMs,
		"request_id":  requestID,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.InfoWithFields("HTTP request completed", fields)
	}
}

// LogScrapeState logs an orchestrator state transition
func LogScrapeState(l Logger, runID, handle, state string) {
	l.DebugWithFields("Scrape state", map[string]interface{}{
		"run_id": runID,
		"handle": handle,
		"state":  state,
	})
}

// LogPostExtraction logs the outcome of one post's detail pass
func LogPostExtraction(l Logger, runID, postID, link string, index int, err error) {
	fields := map[string]interface{}{
		"run_id":  runID,
		"post_id": postID,
		"link":    link,
		"index":   index,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Post extraction failed", fields)
		return
	}
	l.DebugWithFields("Post extracted", fields)
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

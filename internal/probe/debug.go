package probe

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"camstress/internal/classify"
)

const maxBodyLogSize = 1024

// DebugLogger logs every request and response at debug level. A nil
// *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	log zerolog.Logger
}

func NewDebugLogger(log zerolog.Logger) *DebugLogger {
	return &DebugLogger{log: log}
}

func (d *DebugLogger) LogRequest(probe string, req *http.Request, body []byte) {
	if d == nil {
		return
	}
	ev := d.log.Debug().
		Str("probe", probe).
		Str("method", req.Method).
		Str("url", req.URL.String())
	if len(body) > 0 {
		ev = ev.Str("body", truncateBody(body))
	}
	ev.Msg(">>> request")
}

func (d *DebugLogger) LogResponse(probe string, a classify.Attempt) {
	if d == nil {
		return
	}
	ev := d.log.Debug().
		Str("probe", probe).
		Int("status", a.StatusCode).
		Str("content_type", a.ContentType).
		Dur("duration", a.Elapsed.Round(time.Millisecond)).
		Int("bytes", len(a.Body))
	if len(a.Body) > 0 && a.ContentType != "image/jpeg" {
		ev = ev.Str("body", truncateBody(a.Body))
	}
	ev.Msg("<<< response")
}

func (d *DebugLogger) LogError(probe string, err error, duration time.Duration) {
	if d == nil {
		return
	}
	d.log.Debug().
		Str("probe", probe).
		Dur("duration", duration.Round(time.Millisecond)).
		Err(err).
		Msg("!!! transport error")
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}

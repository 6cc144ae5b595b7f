package security

import (
	"net/http"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// BodyLimit caps request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects a declared Content-Length above Max with HTTP 413 up front.
// Bodies of unknown length are wrapped in http.MaxBytesReader; common.DecodeJSON
// reports the overrun as 413 when the handler reads past the limit.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.WriteAppError(w, common.PayloadTooLarge(nil))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

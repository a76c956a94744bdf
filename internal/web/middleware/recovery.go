package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/judgeportal/internal/middleware"
)

// Recovery creates panic recovery middleware for the web interface
// Returns a plain-text error on panic
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, webPanicHandler)
}

func webPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Internal Server Error"))
}

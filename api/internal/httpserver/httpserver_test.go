package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterMountsRoutesAndHealth(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, map[string]http.Handler{
		"/ocr/messages": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ocr"))
		}),
	}, "ok")

	for path, want := range map[string]string{"/healthz": "ok", "/ocr/messages": "ocr"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		body, _ := io.ReadAll(rec.Body)
		if string(body) != want {
			t.Fatalf("%s: body = %q, want %q", path, body, want)
		}
	}
}

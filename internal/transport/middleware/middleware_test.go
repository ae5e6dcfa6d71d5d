package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("filterSensitiveBody", func() {
	It("masks payment and credential fields at any depth", func() {
		body := []byte(`{"amount":500,"paymentDetails":{"method":"credit_card","cardNumber":"4111111111111111","cvv":"123"},"signature":"abc"}`)

		var out map[string]interface{}
		Expect(json.Unmarshal([]byte(filterSensitiveBody(body)), &out)).To(Succeed())

		Expect(out["amount"]).To(BeNumerically("==", 500))
		Expect(out["signature"]).To(Equal("[FILTERED]"))
		details := out["paymentDetails"].(map[string]interface{})
		Expect(details["method"]).To(Equal("credit_card"))
		Expect(details["cardNumber"]).To(Equal("[FILTERED]"))
		Expect(details["cvv"]).To(Equal("[FILTERED]"))
	})

	It("masks the authorization header", func() {
		headers := http.Header{"Authorization": {"Bearer x"}, "Accept": {"application/json"}}
		filtered := filterSensitiveHeaders(headers)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["Accept"]).To(Equal("application/json"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns panics into a JSON 500", func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	It("echoes allowed origins only", func() {
		handler := CORS("https://donate.example.org")(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://donate.example.org")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://donate.example.org"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("short-circuits preflight requests", func() {
		rec := httptest.NewRecorder()
		CORS("*")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})
})

var _ = Describe("RequestID", func() {
	It("propagates a caller supplied trace id", func() {
		handler := RequestID(next200())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-1"))
	})

	It("generates one otherwise", func() {
		rec := httptest.NewRecorder()
		RequestID(next200()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})
})

func next200() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

var _ = Describe("LoggingMiddleware", func() {
	It("tags entries with the trace id and masks donor contact details", func() {
		var out bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&out, nil))
		handler := RequestID(LoggingMiddleware(logger)(next200()))

		req := httptest.NewRequest(http.MethodPut, "/api/v1/checkout/sessions/s1/form",
			strings.NewReader(`{"donorInfo":{"firstName":"Asha","email":"asha@example.com"}}`))
		req.Header.Set("X-Trace-ID", "trace-42")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		Expect(out.String()).To(ContainSubstring(`"trace_id":"trace-42"`))
		Expect(out.String()).To(ContainSubstring("Asha"))
		Expect(out.String()).NotTo(ContainSubstring("asha@example.com"))
	})

	It("skips the API documentation", func() {
		var out bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&out, nil))
		LoggingMiddleware(logger)(next200()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
		Expect(out.Len()).To(BeZero())
	})
})

package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func sign(authToken, fullURL string, params map[string]string) string {
	data := fullURL
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newApp(token string) *echo.Echo {
	e := echo.New()
	e.Use(TwilioAuth(token, "calls.example.com"))
	e.POST("/twilio/voice", func(c echo.Context) error {
		params := c.Get("twilioParams").(map[string]string)
		return c.String(http.StatusOK, params["CallSid"])
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	return e
}

func TestTwilioAuth_ValidSignature(t *testing.T) {
	token := "secret"
	params := map[string]string{"CallSid": "CA1", "From": "+15550001111"}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("X-Twilio-Signature", sign(token, "https://calls.example.com/twilio/voice", params))
	rec := httptest.NewRecorder()

	newApp(token).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "CA1" {
		t.Fatalf("expected 200/CA1, got %d/%q", rec.Code, rec.Body.String())
	}
}

func TestTwilioAuth_InvalidSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("X-Twilio-Signature", "bogus")
	rec := httptest.NewRecorder()

	newApp("secret").ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTwilioAuth_MissingSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	newApp("secret").ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTwilioAuth_NonTwilioRoutesPass(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	newApp("secret").ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("non-twilio routes must bypass auth, got %d", rec.Code)
	}
}

func TestTwilioAuth_NoTokenConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	newApp("").ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 with no token, got %d", rec.Code)
	}
}

package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func TestParse(t *testing.T) {
	assert.True(t, Parse(iPhoneUA).Mobile)
	assert.False(t, Parse(desktopUA).Mobile)
	assert.Equal(t, Info{}, Parse(""))
}

func TestDetect(t *testing.T) {
	var got Info
	h := Detect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", iPhoneUA)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, got.Mobile)
}

func TestFromContextDefaultsToDesktop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, FromContext(req.Context()).Mobile)
}

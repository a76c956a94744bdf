package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/judgeportal/internal/factory"
	"github.com/mcoot/judgeportal/internal/testutil"
	"github.com/mcoot/judgeportal/internal/web"
)

// webTestServer provides a test server for web interface testing
type webTestServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
	fixture *testutil.Fixture
	cookies *cookieJar
}

// newWebTestServer creates a new test server over a fresh judge fixture
func newWebTestServer(t *testing.T) *webTestServer {
	t.Helper()

	fixture := testutil.NewFixture(t)
	app := factory.NewTestApp(fixture)

	router := web.NewRouter(web.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		Streamer:    app.RealtimeHandler,
		WebDir:      fixture.WebDir,
	})

	return &webTestServer{
		t:       t,
		handler: router,
		app:     app,
		fixture: fixture,
		cookies: newCookieJar(),
	}
}

// request makes an HTTP request and returns the response
func (ts *webTestServer) request(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// Add cookies from jar
	ts.cookies.addTo(req)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	// Extract Set-Cookie headers into jar
	ts.cookies.extract(rr)

	return rr
}

// get makes a GET request
func (ts *webTestServer) get(path string) *httptest.ResponseRecorder {
	return ts.request(http.MethodGet, path, "", nil)
}

// postLoginForm posts credentials the way the login page does: the JSON
// document is the first form key
func (ts *webTestServer) postLoginForm(username, password string) *httptest.ResponseRecorder {
	doc, _ := json.Marshal(map[string]string{"username": username, "password": password})
	form := url.Values{string(doc): {""}}
	return ts.request(http.MethodPost, "/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// postLoginJSON posts credentials as a raw JSON body
func (ts *webTestServer) postLoginJSON(username, password string) *httptest.ResponseRecorder {
	doc, _ := json.Marshal(map[string]string{"username": username, "password": password})
	return ts.request(http.MethodPost, "/login", "application/json", strings.NewReader(string(doc)))
}

// login logs in through the form and requires success
func (ts *webTestServer) login(username, password string) string {
	ts.t.Helper()
	rr := ts.postLoginForm(username, password)
	require.Equal(ts.t, http.StatusOK, rr.Code)
	token := decodeSessionID(ts.t, rr)
	require.NotNil(ts.t, token, "Expected login to succeed")
	require.True(ts.t, ts.cookies.hasSession(), "Expected session cookie to be set")
	return *token
}

func decodeSessionID(t *testing.T, rr *httptest.ResponseRecorder) *string {
	t.Helper()
	var resp struct {
		SessionID *string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionID
}

// parseHTML parses the response body as HTML
func parseHTML(r io.Reader) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		panic(err)
	}
	return doc
}

// cookieJar maintains cookies across requests (like a browser would)
type cookieJar struct {
	cookies map[string]*http.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{
		cookies: make(map[string]*http.Cookie),
	}
}

// addTo adds all cookies to the request
func (j *cookieJar) addTo(req *http.Request) {
	for _, cookie := range j.cookies {
		req.AddCookie(cookie)
	}
}

// extract extracts Set-Cookie headers from response
func (j *cookieJar) extract(rr *httptest.ResponseRecorder) {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 {
			// Cookie being deleted
			delete(j.cookies, cookie.Name)
		} else {
			j.cookies[cookie.Name] = cookie
		}
	}
}

// hasSession returns true if the session cookie is set
func (j *cookieJar) hasSession() bool {
	_, ok := j.cookies["sessionId"]
	return ok
}

package receiver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngestAccepted(t *testing.T) {
	store := &Log{}
	h := NewHTTPHandler(store, nil, false).Router()

	rec := postForm(t, h, "code=abc123&version=4.12&length=180.5&artist=Test+Artist&track=Test+Song")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Test Song", resp["track"])
	assert.NotEmpty(t, resp["track_id"])

	subs := store.List()
	require.Len(t, subs, 1)
	assert.Equal(t, "abc123", subs[0].Code)
	assert.Equal(t, "4.12", subs[0].Version)
	assert.Equal(t, "180.5", subs[0].Length)
	assert.Equal(t, "Test Artist", subs[0].Artist)
	assert.Equal(t, "Test Song", subs[0].Track)
	assert.Equal(t, resp["track_id"], subs[0].ID)
}

func TestIngestRejectsInvalidFields(t *testing.T) {
	cases := map[string]url.Values{
		"missing code":   {"version": {"4.12"}, "length": {"180"}},
		"short version":  {"code": {"abc"}, "version": {"4.1"}, "length": {"180"}},
		"missing length": {"code": {"abc"}, "version": {"4.12"}},
		"bad length":     {"code": {"abc"}, "version": {"4.12"}, "length": {"three minutes"}},
		"NaN length":     {"code": {"abc"}, "version": {"4.12"}, "length": {"NaN"}},
		"Infinity":       {"code": {"abc"}, "version": {"4.12"}, "length": {"Infinity"}},
		"negative Inf":   {"code": {"abc"}, "version": {"4.12"}, "length": {"-Inf"}},
		"sign only":      {"code": {"abc"}, "version": {"4.12"}, "length": {"-"}},
		"leading dot":    {"code": {"abc"}, "version": {"4.12"}, "length": {".5"}},
		"long version":   {"code": {"abc"}, "version": {"\U0001D11E123"}, "length": {"1"}},
	}

	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			store := &Log{}
			h := NewHTTPHandler(store, nil, false).Router()

			rec := postForm(t, h, form.Encode())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "missing or invalid required fields")
			assert.Zero(t, store.Len())
		})
	}
}

func TestIngestAcceptsParseIntLengths(t *testing.T) {
	cases := map[string]url.Values{
		"trailing text":  {"code": {"abc"}, "version": {"4.12"}, "length": {"12abc"}},
		"leading space":  {"code": {"abc"}, "version": {"4.12"}, "length": {" \t42"}},
		"signed":         {"code": {"abc"}, "version": {"4.12"}, "length": {"-7"}},
		"plus sign":      {"code": {"abc"}, "version": {"4.12"}, "length": {"+3"}},
		"fraction":       {"code": {"abc"}, "version": {"4.12"}, "length": {"180.5"}},
		"huge":           {"code": {"abc"}, "version": {"4.12"}, "length": {"99999999999999999999999"}},
		"accented ver":   {"code": {"abc"}, "version": {"4.1\u00e9"}, "length": {"1"}},
		"surrogate pair": {"code": {"abc"}, "version": {"\U0001D11E12"}, "length": {"1"}},
	}

	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			store := &Log{}
			h := NewHTTPHandler(store, nil, false).Router()

			rec := postForm(t, h, form.Encode())
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestLeadingInt(t *testing.T) {
	n, ok := leadingInt("  -12.9s")
	require.True(t, ok)
	assert.Equal(t, int64(-12), n)

	n, ok = leadingInt("180")
	require.True(t, ok)
	assert.Equal(t, int64(180), n)

	n, ok = leadingInt("0x1f")
	require.True(t, ok)
	assert.Zero(t, n)

	for _, s := range []string{"", " ", "+", "NaN", "Infinity", "x1"} {
		_, ok := leadingInt(s)
		assert.False(t, ok, s)
	}
}

func TestIngestDecodesCodesWhenEnabled(t *testing.T) {
	store := &Log{}
	h := NewHTTPHandler(store, nil, true).Router()

	good := url.Values{"code": {compressCode(t, "0000100002000ab000cd")}, "version": {"4.12"}, "length": {"1"}}
	rec := postForm(t, h, good.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, store.Len())
	assert.Equal(t, 2, store.List()[0].Codes)

	bad := url.Values{"code": {"abc123"}, "version": {"4.12"}, "length": {"1"}}
	rec = postForm(t, h, bad.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid code")
	assert.Equal(t, 1, store.Len())
}

func TestSubmissionsListedInOrder(t *testing.T) {
	store := &Log{}
	h := NewHTTPHandler(store, nil, false).Router()

	for _, track := range []string{"One", "Two", "Three"} {
		form := url.Values{"code": {"c"}, "version": {"4.12"}, "length": {"1"}, "artist": {"A"}, "track": {track}}
		require.Equal(t, http.StatusOK, postForm(t, h, form.Encode()).Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submissions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var subs []Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 3)
	assert.Equal(t, "One", subs[0].Track)
	assert.Equal(t, "Two", subs[1].Track)
	assert.Equal(t, "Three", subs[2].Track)
}

func TestHealth(t *testing.T) {
	h := NewHTTPHandler(&Log{}, nil, false).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := NewHTTPHandler(&Log{}, nil, false).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

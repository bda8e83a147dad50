package website

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html lang="en">
<head>
  <title> Acme   Anvils </title>
  <meta name="description" content="Heavy duty anvils since 1950">
  <style>body { color: red }</style>
  <script>var hidden = "do not index";</script>
</head>
<body>
  <h1>Acme <em>Anvils</em></h1>
  <p>We sell anvils. <a href="/shop">Shop now</a> <a>no href</a></p>
  <h2>Why us</h2>
  <img src="a.png" alt="An anvil"><img src="b.png">
  <h3>Contact</h3>
  <h4>Ignored</h4>
</body>
</html>`

func TestParse(t *testing.T) {
	r, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Acme Anvils", r.Title)
	assert.Equal(t, "Heavy duty anvils since 1950", r.Description)
	assert.Equal(t, "en", r.Lang)
	assert.Equal(t, 1, r.Links)
	assert.Equal(t, 2, r.Images)
	assert.Equal(t, 1, r.ImagesMissingAlt)
	want := []Heading{{1, "Acme Anvils"}, {2, "Why us"}, {3, "Contact"}}
	if diff := cmp.Diff(want, r.Headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, r.Excerpt, "do not index")
	assert.NotContains(t, r.Excerpt, "color")
	assert.Contains(t, r.Excerpt, "We sell anvils.")
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	a := New(srv.Client())
	r, err := a.Analyze(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, srv.URL+"/", r.URL)

	material := r.Material()
	assert.Contains(t, material, "Title: Acme Anvils")
	assert.Contains(t, material, "h2: Why us")
	assert.Contains(t, material, "missing alt: 1")

	_, err = a.Analyze(context.Background(), srv.URL+"/missing")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
}

func TestAnalyzeSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Big</title></head><body><p>" + strings.Repeat("word ", 1000) + "</p></body></html>"))
	}))
	defer srv.Close()

	a := New(srv.Client())
	a.maxBytes = 200
	r, err := a.Analyze(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Big", r.Title)
	assert.Less(t, r.WordCount, 60)
}

func TestMaterialEmptyReport(t *testing.T) {
	m := Report{URL: "https://example.com"}.Material()
	assert.Contains(t, m, "Title: (none)")
	assert.Contains(t, m, "(none)\n")
}

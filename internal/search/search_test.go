package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsHTML = `<html><body>
<a href="/search?q=next+page">Next</a>
<a href="https://www.google.com/preferences">Settings</a>
<a href="https://accounts.google.com/signin">Sign in</a>
<a href="/url?q=https://fund.example.org/apply&sa=U">Fund</a>
<a href="https://scholars.example.com/award#details">Award</a>
<a href="https://scholars.example.com/award">Award again</a>
<a href="mailto:help@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="http://third.example.net/">Third</a>
</body></html>`

func TestExtractResultLinks(t *testing.T) {
	links, err := ExtractResultLinks(resultsHTML, "https://www.google.com/search?q=scholarships")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://fund.example.org/apply",
		"https://scholars.example.com/award",
		"http://third.example.net/",
	}, links)
}

func TestResultsPage_Search(t *testing.T) {
	var requested string
	source := func(_ context.Context, pageURL string) (string, error) {
		requested = pageURL
		return resultsHTML, nil
	}
	r := &ResultsPage{URLTemplate: "https://www.google.com/search?q=%s", Source: source}

	links, err := r.Search(context.Background(), "scholarships for seniors", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/search?q=scholarships+for+seniors", requested)
	assert.Len(t, links, 2)
}

func TestResultsPage_Errors(t *testing.T) {
	r := &ResultsPage{URLTemplate: "https://www.google.com/search?q=%s", Source: func(context.Context, string) (string, error) {
		return "", errors.New("blocked")
	}}

	_, err := r.Search(context.Background(), "  ", 5)
	assert.Error(t, err)

	_, err = r.Search(context.Background(), "scholarships", 5)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "blocked")
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="https://fund.example.org/">x</a>`))
	}))
	defer server.Close()

	r := &ResultsPage{URLTemplate: server.URL + "/search?q=%s", Source: HTTPSource(nil)}
	links, err := r.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://fund.example.org/"}, links)
}

func TestLinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	content := `https://one.example
https://two.example | closed
# skipped comment
https://three.example | open | still accepting
https://four.example | bogus
https://five.example | Open
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	links, err := (&LinksFile{Path: path}).Search(context.Background(), "ignored", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://one.example", "https://three.example", "https://five.example"}, links)

	links, err = (&LinksFile{Path: path}).Search(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://one.example"}, links)

	_, err = (&LinksFile{Path: filepath.Join(t.TempDir(), "missing.txt")}).Search(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestRegistrableHost(t *testing.T) {
	assert.Equal(t, "google.com", registrableHost("www.google.com"))
	assert.Equal(t, "google.com", registrableHost("accounts.google.com"))
	assert.Equal(t, "example.org", registrableHost("example.org"))
}

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireChrome(t *testing.T) {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary available")
}

const testPage = `<!doctype html>
<html><head><title>Shop</title></head>
<body>
  <a href="/faq">FAQ</a>
  <a href="about">About</a>
  <a href="https://other.example/x">Elsewhere</a>
  <a href="mailto:hi@example.com">Mail</a>
</body></html>`

func TestSessionLinksAndHTML(t *testing.T) {
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	s, err := Open(context.Background(), Options{Headless: true, Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer s.Close()

	links, err := s.Links(server.URL + "/")
	require.NoError(t, err)
	assert.Contains(t, links, server.URL+"/faq")
	assert.Contains(t, links, server.URL+"/about")
	assert.Contains(t, links, "https://other.example/x")
	assert.Contains(t, links, "mailto:hi@example.com")

	html, err := s.HTML(server.URL + "/")
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Shop</title>")

	_, err = s.HTML(server.URL + "/missing")
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

const plainPage = `<!doctype html><html><body><a href="/one">One</a></body></html>`

// latePage injects its only link after load, once a delayed fetch resolves.
const latePage = `<!doctype html>
<html><body>
<script>
setTimeout(() => {
  fetch('/target').then(r => r.text()).then(href => {
    const a = document.createElement('a');
    a.href = href;
    a.textContent = 'late';
    document.body.appendChild(a);
  });
}, 200);
</script>
</body></html>`

func TestSessionWaitsForCurrentDocumentOnReusedTab(t *testing.T) {
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/target":
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte("/injected"))
		case "/late":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(latePage))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(plainPage))
		}
	}))
	defer server.Close()

	s, err := Open(context.Background(), Options{Headless: true, Timeout: 10 * time.Second})
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Links(server.URL + "/first")
	require.NoError(t, err)
	assert.Contains(t, first, server.URL+"/one")

	// Second navigation on the same tab must not settle on the first
	// document's networkIdle.
	late, err := s.Links(server.URL + "/late")
	require.NoError(t, err)
	assert.Contains(t, late, server.URL+"/injected")
	assert.NotContains(t, late, server.URL+"/one")
}

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brandHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Acme Running</title>
	<meta name="description" content="Footwear built for the city.">
</head>
<body>
	<nav>Home About Shop</nav>
	<main>
		<h1>Run the city</h1>
		<p>Acme makes playful, durable running shoes for urban runners.</p>
	</main>
	<footer>Copyright Acme</footer>
	<script>console.log("tracking")</script>
</body>
</html>`

func TestBrandPage_ExtractsCopy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(brandHTML))
	}))
	defer server.Close()

	page, err := BrandPage(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, "Acme Running", page.Title)
	assert.Equal(t, "Footwear built for the city.", page.Description)
	assert.Contains(t, page.Text, "urban runners")

	// nav, footer, and scripts are stripped before extraction
	assert.NotContains(t, page.Text, "Copyright")
	assert.NotContains(t, page.Text, "tracking")
}

func TestBrandPage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := BrandPage(context.Background(), server.URL, nil)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "404")
}

func TestBrandPage_InvalidURL(t *testing.T) {
	_, err := BrandPage(context.Background(), "not-a-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "invalid URL")
}

func TestExtractPage_FallsBackToBody(t *testing.T) {
	html := `<html><head><title>Bare</title></head><body><p>Just a paragraph.</p></body></html>`

	page, err := extractPage("https://example.com", html)
	require.NoError(t, err)
	assert.Equal(t, "Bare", page.Title)
	assert.Contains(t, page.Text, "Just a paragraph.")
}

func TestExtractPage_CapsCorpusLength(t *testing.T) {
	long := strings.Repeat("brand copy ", 2000)
	html := "<html><body><main>" + long + "</main></body></html>"

	page, err := extractPage("https://example.com", html)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(page.Text), maxCorpusChars)
}

func TestCleanWhitespace(t *testing.T) {
	input := "  Run   the\tcity  \n\n\n  Playful   shoes  \n"
	assert.Equal(t, "Run the city\nPlayful shoes", cleanWhitespace(input))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("tiny"))
	assert.False(t, ShouldUseBrowser(strings.Repeat("a", MinContentLength+1)))
}

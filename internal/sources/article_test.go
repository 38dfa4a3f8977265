package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"curator/internal/sources"
)

const articlePage = `<html><head><title>Fallback</title><meta property="og:title" content="Real Title"></head>
<body>
<nav>Home | About</nav>
<header>Site header</header>
<article><h1>Heading</h1><p>First paragraph with <a href="https://x.example">a link</a>.</p><script>alert(1)</script><p>Second paragraph.</p></article>
<footer>Copyright</footer>
</body></html>`

func TestArticleExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	extractor := sources.NewArticleExtractor(sources.NewClient(), 0)
	article, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Title != "Real Title" || article.URL != server.URL {
		t.Fatalf("unexpected article metadata %+v", article)
	}
	for _, want := range []string{"# Heading", "First paragraph", "[a link](https://x.example)", "Second paragraph."} {
		if !strings.Contains(article.Text, want) {
			t.Fatalf("expected %q in %q", want, article.Text)
		}
	}
	for _, noise := range []string{"Home | About", "Site header", "Copyright", "alert"} {
		if strings.Contains(article.Text, noise) {
			t.Fatalf("unexpected %q in %q", noise, article.Text)
		}
	}
}

func TestArticleExtractorTruncates(t *testing.T) {
	page := "<html><body><main><p>" + strings.Repeat("字", 500) + "</p></main></body></html>"
	article, err := sources.NewArticleExtractor(sources.NewClient(), 100).ExtractHTML([]byte(page))
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	if utf8.RuneCountInString(article.Text) != 100 {
		t.Fatalf("expected 100 runes, got %d", utf8.RuneCountInString(article.Text))
	}
}

func TestArticleExtractorEmptyPage(t *testing.T) {
	if _, err := sources.NewArticleExtractor(sources.NewClient(), 0).ExtractHTML([]byte("<html><body><nav>x</nav></body></html>")); err == nil {
		t.Fatal("expected error for page without content")
	}
}

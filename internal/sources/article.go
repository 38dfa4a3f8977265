package sources

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

const defaultMaxArticleChars = 20000

var (
	noiseSelectors   = "script, style, noscript, iframe, svg, nav, header, footer, aside, form, [role=navigation], [role=banner]"
	contentSelectors = "article, main, .content, .post-content, .entry-content, #content"
	blankLines       = regexp.MustCompile(`\n{3,}`)
	spaceRuns        = regexp.MustCompile(`[ \t]+`)
)

// Article is the readable text of a web page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// ArticleExtractor reduces web pages to their main text.
type ArticleExtractor struct {
	client   *Client
	maxChars int
}

// NewArticleExtractor builds an extractor that truncates text to maxChars
// runes. A non-positive maxChars uses the default of 20000.
func NewArticleExtractor(client *Client, maxChars int) *ArticleExtractor {
	if maxChars <= 0 {
		maxChars = defaultMaxArticleChars
	}
	return &ArticleExtractor{client: client, maxChars: maxChars}
}

// Extract fetches pageURL and returns its main content as markdown.
func (e *ArticleExtractor) Extract(ctx context.Context, pageURL string) (Article, error) {
	page, err := e.client.get(ctx, pageURL)
	if err != nil {
		return Article{}, err
	}
	article, err := e.ExtractHTML(page)
	if err != nil {
		return Article{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	article.URL = pageURL
	return article, nil
}

// ExtractHTML reduces an HTML document to its main content.
func (e *ArticleExtractor) ExtractHTML(page []byte) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Article{}, fmt.Errorf("parse html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		title = strings.TrimSpace(og)
	}

	doc.Find(noiseSelectors).Remove()
	selection := doc.Find(contentSelectors).First()
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}

	text := ""
	if fragment, err := goquery.OuterHtml(selection); err == nil {
		if md, err := htmltomarkdown.ConvertString(fragment); err == nil {
			text = md
		}
	}
	if strings.TrimSpace(text) == "" {
		text = selection.Text()
	}
	text = cleanText(text)
	if text == "" {
		return Article{}, fmt.Errorf("no readable content")
	}
	return Article{Title: title, Text: truncateRunes(text, e.maxChars)}, nil
}

func cleanText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

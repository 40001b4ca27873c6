package services

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Patterns stripped before content is handed to the text-generation model.
// Crawled pages routinely embed code samples, leftover template syntax, and
// navigation chrome that waste prompt tokens and skew the output.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```.*?```"),                       // fenced code blocks
	regexp.MustCompile(`\{\{.*?\}\}`),                         // template literals
	regexp.MustCompile(`\$\{.*?\}`),                           // JS template expressions
	regexp.MustCompile(`(?s)function\s*\(.*?\)\s*\{.*?\}`),    // function declarations
	regexp.MustCompile(`(?:const|let|var)\s+\w+\s*=[^;\n]*;`), // variable declarations
	regexp.MustCompile(`import\s+[^;\n]*?from\s+['"][^'"]*['"];?`),
	regexp.MustCompile(`export\s+[^;\n]*;?`),
	regexp.MustCompile(`(?s)/\*.*?\*/`), // multi-line comments
	regexp.MustCompile(`//[^\n]*`),      // single-line comments
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	filePathRe   = regexp.MustCompile(`[/\\][\w\-. ]+[/\\]`)
	symbolRe     = regexp.MustCompile(`[^\w\s.,!?;:'"()-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
	alphaWordRe  = regexp.MustCompile(`[a-zA-Z]{3,}`)
)

// stripMarkup extracts visible text from HTML fragments. Full documents go
// through goquery so script/style bodies are dropped with their tags; anything
// goquery cannot parse falls back to a tag-stripping regex.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err == nil {
		doc.Find("script,style,noscript").Remove()
		return doc.Text()
	}
	return htmlTagRe.ReplaceAllString(s, " ")
}

// CleanText reduces one raw page fragment to plain prose sentences. Sentences
// under 3 words, or without a single word of 3+ letters, are discarded.
func CleanText(raw string) string {
	text := stripMarkup(raw)

	for _, re := range codePatterns {
		text = re.ReplaceAllString(text, " ")
	}

	text = urlRe.ReplaceAllString(text, "")
	text = filePathRe.ReplaceAllString(text, "")
	text = symbolRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	var kept []string
	for _, sentence := range sentenceRe.Split(text, -1) {
		words := strings.Fields(strings.TrimSpace(sentence))
		if len(words) < 3 {
			continue
		}
		meaningful := false
		for _, w := range words {
			if alphaWordRe.MatchString(w) {
				meaningful = true
				break
			}
		}
		if meaningful {
			kept = append(kept, strings.Join(words, " "))
		}
	}

	return strings.TrimSpace(strings.Join(kept, ". "))
}

// CleanPages cleans each page fragment while preserving the slice structure.
func CleanPages(pages []string) []string {
	cleaned := make([]string, len(pages))
	for i, p := range pages {
		cleaned[i] = CleanText(p)
	}
	return cleaned
}

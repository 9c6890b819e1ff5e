package wiki

import "strings"

// ArticleBaseURL prefixes every stored article URL.
const ArticleBaseURL = "https://en.wikipedia.org/wiki/"

// TitleKey returns the underscore form of an article title, as used in URLs and API paths.
func TitleKey(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// ArticleURL returns the canonical, unencoded article URL for title.
func ArticleURL(title string) string {
	return ArticleBaseURL + TitleKey(title)
}

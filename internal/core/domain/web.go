package domain

// WebResult is one search-engine hit, in engine-ranked order.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`

	// Engine names the search engine that produced the hit.
	Engine string `json:"engine"`
}

// PageContent is the readable text extracted from one page.
// A failed extraction is the same type with Length 0 and a
// human-readable error description in Content.
type PageContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Length  int    `json:"length"`
}

// Failed reports whether the extraction produced no usable text.
func (p PageContent) Failed() bool {
	return p.Length == 0
}

// FailedPage builds the soft-failure result for a URL.
func FailedPage(url string, err error) PageContent {
	return PageContent{
		Title:   "Error",
		Content: "Could not extract content: " + err.Error(),
		URL:     url,
		Length:  0,
	}
}

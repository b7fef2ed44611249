package extract

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Flatten reduces an HTML document to markdown-ish text so rendered pages
// and reader-proxy content share one extractor input path. Script and style
// noise is dropped by the conversion. On conversion failure the raw input
// is returned; the regex extractors tolerate markup.
func Flatten(html string) string {
	if html == "" {
		return ""
	}
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return text
}

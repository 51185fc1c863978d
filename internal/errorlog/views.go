package errorlog

import (
	"html"
	"strings"
)

const (
	pageHead = "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>"
	pageBody = "</title>\n</head>\n<body>\n"
	pageTail = "</body>\n</html>\n"
)

// RenderIndex renders the list of recent errors. url is the absolute URL of
// the view itself.
func RenderIndex(url string, records []*Record) []byte {
	var b strings.Builder

	title := "Recent Errors"
	if len(records) == 0 {
		title = "No Recent Errors"
	}

	b.WriteString(pageHead)
	b.WriteString(title)
	b.WriteString(pageBody)
	b.WriteString("<h1>" + title + "</h1>\n")

	if len(records) > 0 {
		b.WriteString("<ul>\n")
		for _, rec := range records {
			b.WriteString("<li>")
			b.WriteString(html.EscapeString(rec.Time()))
			b.WriteString(" <a href=\"")
			b.WriteString(html.EscapeString(rec.URL()))
			b.WriteString("\">")
			b.WriteString(html.EscapeString(rec.Description()))
			b.WriteString("</a></li>\n")
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("<p><a href=\"" + html.EscapeString(url) + "\">Refresh</a></p>\n")
	b.WriteString(pageTail)

	return []byte(b.String())
}

// RenderEntry renders a single error. A nil record renders the expired
// page. indexURL links back to the list.
func RenderEntry(indexURL string, rec *Record) []byte {
	var b strings.Builder

	b.WriteString(pageHead)
	if rec == nil {
		b.WriteString("Error Expired")
		b.WriteString(pageBody)
		b.WriteString("<h1>Error Expired</h1>\n")
		b.WriteString("<p>The requested error is no longer in the log. Only the most recent errors are kept.</p>\n")
	} else {
		header := "Error at " + html.EscapeString(rec.Time())
		b.WriteString(header)
		b.WriteString(pageBody)
		b.WriteString("<h1>" + header + "</h1>\n")
		b.WriteString("<h2>" + html.EscapeString(rec.Description()) + "</h2>\n")
		b.WriteString("<pre>")
		b.WriteString(html.EscapeString(rec.Text()))
		b.WriteString("</pre>\n")
	}

	b.WriteString("<p><a href=\"" + html.EscapeString(indexURL) + "\">Recent Errors</a></p>\n")
	b.WriteString(pageTail)

	return []byte(b.String())
}

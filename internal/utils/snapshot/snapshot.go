package snapshot

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Render converts a rendered page's HTML into a markdown audit snapshot.
// The snapshot sits next to the verification record so an operator can see
// what the page actually displayed when a field count looks wrong.
func Render(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	content := doc.Find("main, [role=\"main\"], #content").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	// Drop non-content noise before conversion.
	content.Find("script, style, noscript, nav, header, aside, iframe, svg, button, input").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	body, err := content.Html()
	if err != nil {
		return ""
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(body)
	if err != nil {
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return ""
	}
	return out + "\n"
}

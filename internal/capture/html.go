package capture

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Elements that never contribute visible text.
const hiddenSelector = "script, style, noscript, template, head"

// Elements that end a line of rendered text.
const blockSelector = "p, div, section, article, header, footer, main, aside, nav, " +
	"h1, h2, h3, h4, h5, h6, li, dt, dd, pre, blockquote, tr, table, ul, ol, dl, form, fieldset, hr"

// FromHTML extracts the title and visible text of an HTML page.
func FromHTML(pageURL string, raw []byte) (*PageContent, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPage
	}
	if err := utils.NewSizeValidator("html", utils.MaxHTMLSize).ValidateSize(raw); err != nil {
		return nil, err
	}

	root, err := htmlquery.Parse(bytes.NewReader(toUTF8(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var title string
	if node := htmlquery.FindOne(root, "//title"); node != nil {
		title = strings.Join(strings.Fields(htmlquery.InnerText(node)), " ")
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find(hiddenSelector).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := normalizeLines(doc.Find("body").Text())
	if text == "" {
		return nil, ErrEmptyPage
	}

	return &PageContent{URL: pageURL, Title: title, Text: text}, nil
}

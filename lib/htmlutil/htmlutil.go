package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("cpkit.lib.htmlutil")

// GetText concatenates every text node under node verbatim, unlike
// goquery's Text it keeps no opinion on whitespace.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// <br> inside <pre> still means a line break
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte('\n')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Anchor is a link as it appears on the page, Href is left unresolved.
type Anchor struct {
	Name string
	Href string
}

// CleanText collapses a node's text into a single line. Every run of
// whitespace, including non-breaking and ideographic spaces, becomes one
// space and other non-printable runes are dropped.
func CleanText(node *html.Node) string {
	text := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsPrint(r):
			return r
		}
		return -1
	}, GetText(node))
	return strings.Join(strings.Fields(text), " ")
}

// GetAnchors returns the anchors in sel in document order. Anchors without
// a parsable href are skipped and recorded on the span.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unparsable href")
			return
		}

		anchor := Anchor{Name: CleanText(a.Nodes[0]), Href: link.String()}
		anchors = append(anchors, anchor)
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", anchor.Name),
			attribute.String("url", anchor.Href),
		))
	})
	span.SetAttributes(attribute.Int("anchors", len(anchors)))
	return anchors
}

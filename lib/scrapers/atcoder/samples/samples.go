package samples

import (
	"cpkit/lib/contest"
	"cpkit/lib/htmlutil"
	"cpkit/lib/textutil"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result holds the extracted samples together with the reasons any sample
// material on the page was discarded.
type Result struct {
	Samples  []contest.SamplePair
	Warnings []string
}

type sectionKind int

const (
	kindOther sectionKind = iota
	kindInput
	kindOutput
)

// section is one "input example" or "output example" block of a statement.
type section struct {
	kind    sectionKind
	heading string
	// text is the normalized sample body, empty when the heading had no
	// body or the body was blank.
	text string
}

// matched against textutil.NormalizeName output
var (
	inputMatchers  = []string{"入力例", "sampleinput", "inputexample", "exampleinput"}
	outputMatchers = []string{"出力例", "sampleoutput", "outputexample", "exampleoutput"}
)

const headingSelector = "h2, h3, h4"

// statements are often served in several languages at once, only one of them
// is read so samples are not counted twice
var scopeSelectors = []string{
	"#task-statement .lang-en",
	"#task-statement .lang-ja",
	"#task-statement",
}

func classify(heading string) sectionKind {
	switch {
	case textutil.MatchName(heading, inputMatchers):
		return kindInput
	case textutil.MatchName(heading, outputMatchers):
		return kindOutput
	}
	return kindOther
}

func scope(doc *goquery.Document) *goquery.Selection {
	for _, selector := range scopeSelectors {
		candidates := doc.Find(selector)
		for i := range candidates.Nodes {
			candidate := candidates.Eq(i)
			if candidate.Find(headingSelector).Length() > 0 {
				return candidate
			}
		}
	}
	return doc.Selection
}

// body finds the <pre> belonging to a heading: the first one among the
// siblings up to the next heading, otherwise the only one in the heading's
// own <section>.
func body(heading *goquery.Selection) *goquery.Selection {
	following := heading.NextUntil(headingSelector)
	pre := following.Filter("pre").First()
	if pre.Length() > 0 {
		return pre
	}
	pre = following.Find("pre").First()
	if pre.Length() > 0 {
		return pre
	}

	container := heading.Closest("section")
	if container.Length() > 0 && container.Find(headingSelector).Length() == 1 {
		return container.Find("pre").First()
	}
	return pre
}

func sections(doc *goquery.Document) []section {
	var out []section
	scope(doc).Find(headingSelector).Each(func(_ int, heading *goquery.Selection) {
		title := htmlutil.CleanText(heading.Nodes[0])
		kind := classify(title)
		if kind == kindOther {
			return
		}

		s := section{kind: kind, heading: title}
		pre := body(heading)
		if pre.Length() > 0 {
			s.text = textutil.NormalizeSample(htmlutil.GetText(pre.Nodes[0]))
		}
		out = append(out, s)
	})
	return out
}

// Extract reads the sample pairs out of a task page. The k-th input section
// is paired with the k-th output section in document order, the headings
// themselves are never compared. Extract never fails, a page without
// samples simply yields none.
func Extract(raw string) Result {
	var result Result

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unparsable markup: %s", err))
		return result
	}

	var inputs, outputs []section
	for _, s := range sections(doc) {
		switch s.kind {
		case kindInput:
			inputs = append(inputs, s)
		case kindOutput:
			outputs = append(outputs, s)
		}
	}

	count := min(len(inputs), len(outputs))
	if len(inputs) != len(outputs) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"found %d input and %d output examples, keeping the first %d pairs",
			len(inputs), len(outputs), count,
		))
	}

	for k := 0; k < count; k++ {
		in, out := inputs[k], outputs[k]
		pair := contest.SamplePair{
			Index:  len(result.Samples) + 1,
			Input:  in.text,
			Output: out.text,
		}
		if !pair.Valid() {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"dropped example %d (%q / %q): empty input or output",
				k+1, in.heading, out.heading,
			))
			continue
		}
		result.Samples = append(result.Samples, pair)
	}

	return result
}

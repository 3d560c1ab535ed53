package resolve

import (
	"strings"

	"verifront/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// labelCandidates are the element kinds that can carry a field label.
const labelCandidates = "label, span, div, p, dt, th, h1, h2, h3, h4, h5, h6"

// defaultContainerSelector is the "card" boundary heuristic: the nearest
// ancestor matching it bounds the region a field's value is searched in.
const defaultContainerSelector = `[class*="card"], [class*="Card"], section, article, li, tr, dl`

// Result is the outcome of resolving one field label against a page.
// NotFound is a valid outcome, not an error: fields legitimately absent from
// an entity's page resolve to Found=false.
type Result struct {
	Found    bool
	Value    string
	Strategy string
	Reason   string
}

// Strategy locates a value element inside a bounded container. Strategies
// are tried in order; the first one that yields a candidate wins, so the
// chain must be ordered from most structural to most permissive.
type Strategy interface {
	Name() string
	Find(container *goquery.Selection, label *goquery.Selection) *goquery.Selection
}

type selectorStrategy struct {
	name     string
	selector string
}

func (s selectorStrategy) Name() string { return s.name }

func (s selectorStrategy) Find(container *goquery.Selection, label *goquery.Selection) *goquery.Selection {
	var match *goquery.Selection
	container.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if withinLabel(sel, label) {
			return true
		}
		match = sel
		return false
	})
	return match
}

// Selector builds a Strategy from a CSS selector. New layout patterns are
// added by extending the chain, never by touching resolution control flow.
func Selector(name, selector string) Strategy {
	return selectorStrategy{name: name, selector: selector}
}

// DefaultStrategies is the production fallback chain: a structural value
// cell first, then the primary-text styled span, then anything whose class
// merely mentions the primary-text marker. The ordering is a precision
// gradient that keeps secondary text from being captured by accident.
func DefaultStrategies() []Strategy {
	return []Strategy{
		Selector("valueCell", ".field-value, dd, td.value"),
		Selector("primarySpan", "span.text-primary"),
		Selector("primaryMark", `[class*="text-primary"]`),
	}
}

type Resolver struct {
	log               *logger.Logger
	containerSelector string
	strategies        []Strategy
}

func New() *Resolver {
	return NewWithStrategies(defaultContainerSelector, DefaultStrategies()...)
}

func NewWithStrategies(containerSelector string, strategies ...Strategy) *Resolver {
	return &Resolver{
		log:               logger.New("FieldResolver"),
		containerSelector: containerSelector,
		strategies:        strategies,
	}
}

// Resolve locates the rendered value for a field label in the parsed page.
// Read-only: the document is never mutated.
func (r *Resolver) Resolve(doc *goquery.Document, label string) Result {
	labelSel := r.findLabel(doc, label)
	if labelSel == nil {
		r.log.LogDebugf("label %q not found on page", label)
		return Result{Reason: "label not found"}
	}

	container := labelSel.ParentsFiltered(r.containerSelector).First()
	if container.Length() == 0 {
		r.log.LogDebugf("label %q has no container ancestor", label)
		return Result{Reason: "no container"}
	}

	for _, strat := range r.strategies {
		if match := strat.Find(container, labelSel); match != nil && match.Length() > 0 {
			return Result{
				Found:    true,
				Value:    strings.TrimSpace(match.Text()),
				Strategy: strat.Name(),
			}
		}
	}
	r.log.LogDebugf("label %q found but no value element matched any strategy", label)
	return Result{Reason: "no value match"}
}

// findLabel picks the element carrying the label text. An element whose own
// text equals the label exactly is preferred over mere containment, so a
// label that is a prefix of another ("Amount Raised" vs "Amount Raised Target")
// cannot shadow the wrong field. Containment remains as a fallback for labels
// rendered with adornments like a trailing colon.
func (r *Resolver) findLabel(doc *goquery.Document, label string) *goquery.Selection {
	var exact, partial *goquery.Selection
	doc.Find(labelCandidates).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		own := strings.TrimSpace(ownText(sel))
		if own == label {
			exact = sel
			return false
		}
		if partial == nil && strings.Contains(own, label) {
			partial = sel
		}
		return true
	})
	if exact != nil {
		return exact
	}
	return partial
}

// ownText returns the text of an element's direct text-node children only,
// so wrapper elements that merely contain a labeled descendant do not match.
func ownText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// withinLabel reports whether sel is the label element itself or lives in
// its subtree. Styled descendants of a label are still label markup, never
// the field's value.
func withinLabel(sel, label *goquery.Selection) bool {
	if sel == nil || label == nil || len(sel.Nodes) == 0 || len(label.Nodes) == 0 {
		return false
	}
	labelNode := label.Nodes[0]
	for n := sel.Nodes[0]; n != nil; n = n.Parent {
		if n == labelNode {
			return true
		}
	}
	return false
}

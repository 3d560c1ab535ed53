package resolve

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestResolveStructuralMatchWinsOverBroadClass(t *testing.T) {
	doc := parse(t, `
		<div class="company-card">
			<span class="field-label">Revenue</span>
			<span class="field-value">$2.4M ARR</span>
			<span class="text-primary">secondary caption</span>
		</div>`)

	res := New().Resolve(doc, "Revenue")
	require.True(t, res.Found)
	require.Equal(t, "$2.4M ARR", res.Value)
	require.Equal(t, "valueCell", res.Strategy)
}

func TestResolvePrimarySpanFallback(t *testing.T) {
	doc := parse(t, `
		<div class="info-card">
			<span>Industry</span>
			<span class="text-primary">Robotics</span>
		</div>`)

	res := New().Resolve(doc, "Industry")
	require.True(t, res.Found)
	require.Equal(t, "Robotics", res.Value)
	require.Equal(t, "primarySpan", res.Strategy)
}

func TestResolveClassMarkerFallback(t *testing.T) {
	doc := parse(t, `
		<div class="info-card">
			<span>Location</span>
			<div class="fw-bold text-primary-darker">Austin, TX</div>
		</div>`)

	res := New().Resolve(doc, "Location")
	require.True(t, res.Found)
	require.Equal(t, "Austin, TX", res.Value)
	require.Equal(t, "primaryMark", res.Strategy)
}

func TestResolveTrimsValue(t *testing.T) {
	doc := parse(t, `
		<section>
			<p>Founders</p>
			<dd>
				Jane Doe, John Roe
			</dd>
		</section>`)

	res := New().Resolve(doc, "Founders")
	require.True(t, res.Found)
	require.Equal(t, "Jane Doe, John Roe", res.Value)
}

func TestResolveLabelNotFound(t *testing.T) {
	doc := parse(t, `<div class="card"><span>Revenue</span><dd>$1M</dd></div>`)

	res := New().Resolve(doc, "Founder Email")
	require.False(t, res.Found)
	require.Equal(t, "label not found", res.Reason)
	require.Empty(t, res.Value)
}

func TestResolveNoContainerAncestor(t *testing.T) {
	doc := parse(t, `<body><span>Website</span><dd>acme.io</dd></body>`)

	res := New().Resolve(doc, "Website")
	require.False(t, res.Found)
	require.Equal(t, "no container", res.Reason)
}

func TestResolveNoValueElement(t *testing.T) {
	doc := parse(t, `
		<div class="card">
			<span>Verticals</span>
			<span class="muted">nothing primary here</span>
		</div>`)

	res := New().Resolve(doc, "Verticals")
	require.False(t, res.Found)
	require.Equal(t, "no value match", res.Reason)
}

func TestResolveExactLabelBeatsSubstringMatch(t *testing.T) {
	// "Amount Raised" is a prefix of "Amount Raised Target"; the element
	// whose text matches exactly must win even though the longer label
	// appears first in document order.
	doc := parse(t, `
		<div class="card">
			<span>Amount Raised Target</span>
			<span class="field-value">$10M</span>
		</div>
		<div class="card">
			<span>Amount Raised</span>
			<span class="field-value">$3.5M</span>
		</div>`)

	res := New().Resolve(doc, "Amount Raised")
	require.True(t, res.Found)
	require.Equal(t, "$3.5M", res.Value)
}

func TestResolveSubstringFallbackForAdornedLabels(t *testing.T) {
	doc := parse(t, `
		<div class="card">
			<span>Funding Stage:</span>
			<span class="field-value">Series A</span>
		</div>`)

	res := New().Resolve(doc, "Funding Stage")
	require.True(t, res.Found)
	require.Equal(t, "Series A", res.Value)
}

func TestResolveSkipsLabelElementItself(t *testing.T) {
	// The label carries the primary-text class; the resolver must not hand
	// the label text back as the value.
	doc := parse(t, `
		<div class="card">
			<span class="text-primary">Lead Investor</span>
			<span class="text-primary">Sequoia</span>
		</div>`)

	res := New().Resolve(doc, "Lead Investor")
	require.True(t, res.Found)
	require.Equal(t, "Sequoia", res.Value)
}

func TestResolveSkipsLabelDescendants(t *testing.T) {
	// A styled child of the label (here an info glyph) is still label
	// markup; the value must come from outside the label's subtree.
	doc := parse(t, `
		<div class="card">
			<span>Industry <b class="text-primary">i</b></span>
			<div class="text-primary-darker">Robotics</div>
		</div>`)

	res := New().Resolve(doc, "Industry")
	require.True(t, res.Found)
	require.Equal(t, "Robotics", res.Value)
	require.Equal(t, "primaryMark", res.Strategy)
}

func TestResolveWrapperDivDoesNotShadowLeafLabel(t *testing.T) {
	// The wrapper contains the label text only through its descendants;
	// own-text matching must land on the leaf span so the container ascent
	// starts from the right place.
	doc := parse(t, `
		<div class="outer-card">
			<div>
				<span>Year Founded</span>
				<span class="field-value">2019</span>
			</div>
		</div>`)

	res := New().Resolve(doc, "Year Founded")
	require.True(t, res.Found)
	require.Equal(t, "2019", res.Value)
}

func TestResolveCustomStrategyChain(t *testing.T) {
	doc := parse(t, `
		<table><tbody>
			<tr>
				<th>Latest Valuation</th>
				<td data-cell="value">$40M</td>
			</tr>
		</tbody></table>`)

	r := NewWithStrategies("tr", Selector("dataCell", `[data-cell="value"]`))
	res := r.Resolve(doc, "Latest Valuation")
	require.True(t, res.Found)
	require.Equal(t, "$40M", res.Value)
	require.Equal(t, "dataCell", res.Strategy)
}

package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"verifront/internal/core/jobsource"
	"verifront/internal/core/resolve"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// stubResolver resolves from a fixed label->value table, ignoring the page.
type stubResolver struct {
	values map[string]string
}

func (s stubResolver) Resolve(_ *goquery.Document, label string) resolve.Result {
	if v, ok := s.values[label]; ok {
		return resolve.Result{Found: true, Value: v, Strategy: "stub"}
	}
	return resolve.Result{Reason: "label not found"}
}

func emptyDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	return doc
}

var testEntity = jobsource.EntityJob{
	ID:             "co-001",
	Name:           "AcmeRobotics",
	TargetLocation: "https://app.example.com/companies/co-001",
}

func tenOfFifteen() map[string]string {
	return map[string]string{
		"Company Name":     "Acme Robotics",
		"Website":          "acme.io",
		"Industry":         "Robotics",
		"Location":         "Austin, TX",
		"Founders":         "Jane Doe",
		"Year Founded":     "2019",
		"Funding Stage":    "Series A",
		"Latest Valuation": "$40M",
		"Amount Raised":    "$3.5M",
		"Revenue":          "$2.4M ARR",
	}
}

func TestAssemblePartialPage(t *testing.T) {
	a := NewAssembler(stubResolver{values: tenOfFifteen()})
	schema := DefaultSchema()
	rec := a.Assemble(testEntity, schema, emptyDoc(t), time.Now().UTC())

	require.Len(t, rec.Fields, len(schema))
	require.Equal(t, 10, rec.Metadata.FieldsExtracted)
	require.True(t, rec.Metadata.ExtractionSuccess)
	require.Equal(t, testEntity.ID, rec.Metadata.EntityID)
	require.Equal(t, testEntity.TargetLocation, rec.Metadata.TargetLocation)

	// The five missing fields are present as empty-string sentinels.
	for _, key := range []string{"founder_email", "fund_raise_target", "list_of_investors", "lead_investor", "verticals"} {
		v, ok := rec.Fields[key]
		require.True(t, ok, key)
		require.Empty(t, v)
	}
}

func TestAssembleNothingResolved(t *testing.T) {
	a := NewAssembler(stubResolver{})
	rec := a.Assemble(testEntity, DefaultSchema(), emptyDoc(t), time.Now().UTC())

	require.Equal(t, 0, rec.Metadata.FieldsExtracted)
	require.False(t, rec.Metadata.ExtractionSuccess)
	for _, v := range rec.Fields {
		require.Empty(t, v)
	}
}

func TestAssembleFieldIndependence(t *testing.T) {
	full := tenOfFifteen()
	withoutRevenue := tenOfFifteen()
	delete(withoutRevenue, "Revenue")

	schema := DefaultSchema()
	doc := emptyDoc(t)
	now := time.Now().UTC()

	recFull := NewAssembler(stubResolver{values: full}).Assemble(testEntity, schema, doc, now)
	recPartial := NewAssembler(stubResolver{values: withoutRevenue}).Assemble(testEntity, schema, doc, now)

	// Forcing one field to NotFound changes only that field.
	for key, want := range recFull.Fields {
		if key == "revenue" {
			continue
		}
		require.Equal(t, want, recPartial.Fields[key], key)
	}
	require.Empty(t, recPartial.Fields["revenue"])
	require.Equal(t, recFull.Metadata.FieldsExtracted-1, recPartial.Metadata.FieldsExtracted)
}

func TestAssembleIdempotentModuloTimestamp(t *testing.T) {
	a := NewAssembler(stubResolver{values: tenOfFifteen()})
	schema := DefaultSchema()
	doc := emptyDoc(t)

	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(45 * time.Minute)

	rec1 := a.Assemble(testEntity, schema, doc, t1)
	rec2 := a.Assemble(testEntity, schema, doc, t2)

	b1, err := json.Marshal(rec1)
	require.NoError(t, err)
	b2, err := json.Marshal(rec2)
	require.NoError(t, err)

	var m1, m2 map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b1, &m1))
	require.NoError(t, json.Unmarshal(b2, &m2))

	var meta1, meta2 map[string]interface{}
	require.NoError(t, json.Unmarshal(m1[MetadataKey], &meta1))
	require.NoError(t, json.Unmarshal(m2[MetadataKey], &meta2))
	require.NotEqual(t, meta1["extracted_at"], meta2["extracted_at"])
	delete(meta1, "extracted_at")
	delete(meta2, "extracted_at")
	require.Equal(t, meta1, meta2)

	delete(m1, MetadataKey)
	delete(m2, MetadataKey)
	require.Equal(t, m1, m2)

	// Same timestamp means byte-identical artifacts.
	rec3 := a.Assemble(testEntity, schema, doc, t1)
	b3, err := json.Marshal(rec3)
	require.NoError(t, err)
	require.Equal(t, string(b1), string(b3))
}

func TestArtifactShape(t *testing.T) {
	a := NewAssembler(stubResolver{values: tenOfFifteen()})
	schema := DefaultSchema()
	rec := a.Assemble(testEntity, schema, emptyDoc(t), time.Now().UTC())

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &flat))

	// Every schema key plus the reserved metadata key, nothing else.
	require.Len(t, flat, len(schema)+1)
	for _, f := range schema {
		require.Contains(t, flat, f.Key)
	}
	require.Contains(t, flat, MetadataKey)

	// Fields come first, in schema order.
	require.True(t, strings.HasPrefix(string(b), `{"company_name":`))

	var roundTrip VerificationRecord
	require.NoError(t, json.Unmarshal(b, &roundTrip))
	require.Equal(t, rec.Fields, roundTrip.Fields)
	require.Equal(t, rec.Metadata.FieldsExtracted, roundTrip.Metadata.FieldsExtracted)
	require.Equal(t, rec.Metadata.ExtractionSuccess, roundTrip.Metadata.ExtractionSuccess)
}

func TestAssembleOutcomesDiagnostics(t *testing.T) {
	a := NewAssembler(stubResolver{values: tenOfFifteen()})
	schema := DefaultSchema()
	rec := a.Assemble(testEntity, schema, emptyDoc(t), time.Now().UTC())

	require.Len(t, rec.Outcomes, len(schema))
	found := 0
	for i, o := range rec.Outcomes {
		require.Equal(t, schema[i].Key, o.Key)
		if o.Found {
			found++
			require.Equal(t, "stub", o.Strategy)
		} else {
			require.Equal(t, "label not found", o.Reason)
		}
	}
	require.Equal(t, rec.Metadata.FieldsExtracted, found)
}

func TestFailedRecord(t *testing.T) {
	schema := DefaultSchema()
	rec := FailedRecord(testEntity, schema, time.Now().UTC(), "navigation failed")

	require.Equal(t, 0, rec.Metadata.FieldsExtracted)
	require.False(t, rec.Metadata.ExtractionSuccess)
	require.Len(t, rec.Fields, len(schema))
	for _, v := range rec.Fields {
		require.Empty(t, v)
	}
	require.Len(t, rec.Outcomes, len(schema))
	for _, o := range rec.Outcomes {
		require.False(t, o.Found)
		require.Equal(t, "navigation failed", o.Reason)
	}
}

func TestWhitespaceOnlyValueDoesNotCount(t *testing.T) {
	a := NewAssembler(stubResolver{values: map[string]string{
		"Company Name": "Acme Robotics",
		"Industry":     "   ",
	}})
	rec := a.Assemble(testEntity, DefaultSchema(), emptyDoc(t), time.Now().UTC())

	require.Equal(t, 1, rec.Metadata.FieldsExtracted)
	require.True(t, rec.Metadata.ExtractionSuccess)
}

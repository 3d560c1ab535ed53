package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MetadataKey is the reserved artifact key carrying extraction metadata.
// Everything else in the artifact is a schema field key.
const MetadataKey = "_extraction_metadata"

// FieldDefinition describes one field to extract: the visible label used to
// locate it on the page and the stable key its value is stored under.
type FieldDefinition struct {
	Label string
	Key   string
}

// DefaultSchema is the fixed, ordered field schema applied to every entity.
// The keys are a wire contract with the downstream comparison stage and must
// not change without a coordinated consumer update.
func DefaultSchema() []FieldDefinition {
	return []FieldDefinition{
		{Label: "Company Name", Key: "company_name"},
		{Label: "Website", Key: "website"},
		{Label: "Industry", Key: "industry"},
		{Label: "Location", Key: "location"},
		{Label: "Founders", Key: "founders"},
		{Label: "Founder Email", Key: "founder_email"},
		{Label: "Year Founded", Key: "year_founded"},
		{Label: "Funding Stage", Key: "funding_stage"},
		{Label: "Latest Valuation", Key: "latest_valuation"},
		{Label: "Fund Raise Target", Key: "fund_raise_target"},
		{Label: "Amount Raised", Key: "amount_raised"},
		{Label: "Revenue", Key: "revenue"},
		{Label: "List of Investors", Key: "list_of_investors"},
		{Label: "Lead Investor", Key: "lead_investor"},
		{Label: "Verticals", Key: "verticals"},
	}
}

// Metadata is computed once, after every field has been attempted.
// FieldsExtracted always equals the number of schema keys holding a
// non-empty trimmed value; ExtractionSuccess is derived, never set directly.
type Metadata struct {
	ExtractedAt       time.Time `json:"extracted_at"`
	EntityID          string    `json:"entity_id"`
	TargetLocation    string    `json:"target_location"`
	FieldsExtracted   int       `json:"fields_extracted"`
	ExtractionSuccess bool      `json:"extraction_success"`
}

// Outcome is the structured per-field diagnostic. Outcomes travel with the
// run summary, not with the artifact, so missing fields are queryable
// instead of being visible only in log lines.
type Outcome struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Found    bool   `json:"found"`
	Strategy string `json:"strategy,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// VerificationRecord is the assembled, schema-complete output of one
// extraction pass. It is owned by the entity iteration that created it and
// is never mutated after finalization.
type VerificationRecord struct {
	Fields   map[string]string
	Metadata Metadata
	Outcomes []Outcome

	order []string
}

func newRecord(schema []FieldDefinition) *VerificationRecord {
	rec := &VerificationRecord{
		Fields: make(map[string]string, len(schema)),
		order:  make([]string, 0, len(schema)),
	}
	for _, f := range schema {
		rec.Fields[f.Key] = ""
		rec.order = append(rec.order, f.Key)
	}
	return rec
}

func (r *VerificationRecord) finalize(entityID, target string, extractedAt time.Time) {
	extracted := 0
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			extracted++
		}
	}
	r.Metadata = Metadata{
		ExtractedAt:       extractedAt,
		EntityID:          entityID,
		TargetLocation:    target,
		FieldsExtracted:   extracted,
		ExtractionSuccess: extracted > 0,
	}
}

// MarshalJSON emits the artifact contract: every schema key at the top
// level in schema order, plus the reserved metadata key, and nothing else.
func (r *VerificationRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, key := range r.order {
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Fields[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		buf.WriteByte(',')
	}
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + MetadataKey + `":`)
	buf.Write(meta)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a record written by MarshalJSON. Field order is
// recovered from the document order of the artifact itself.
func (r *VerificationRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Fields = make(map[string]string, len(flat))
	r.order = r.order[:0]
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in record", tok)
		}
		if key == MetadataKey {
			if err := json.Unmarshal(flat[key], &r.Metadata); err != nil {
				return err
			}
			// skip the value in the token stream
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		r.Fields[key] = val
		r.order = append(r.order, key)
	}
	return nil
}

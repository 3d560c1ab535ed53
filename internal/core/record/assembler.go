package record

import (
	"time"

	"verifront/internal/core/jobsource"
	"verifront/internal/core/resolve"
	"verifront/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

// FieldResolver resolves one field label against a parsed page.
type FieldResolver interface {
	Resolve(doc *goquery.Document, label string) resolve.Result
}

// Assembler drives the resolver across the full schema and produces a
// finalized VerificationRecord per entity.
type Assembler struct {
	log      *logger.Logger
	resolver FieldResolver
}

func NewAssembler(r FieldResolver) *Assembler {
	return &Assembler{log: logger.New("RecordAssembler"), resolver: r}
}

// Assemble attempts every schema field unconditionally: a miss on one field
// never short-circuits the rest. Metadata is computed once, after the last
// field, from the final record state.
func (a *Assembler) Assemble(entity jobsource.EntityJob, schema []FieldDefinition, doc *goquery.Document, extractedAt time.Time) *VerificationRecord {
	rec := newRecord(schema)
	rec.Outcomes = make([]Outcome, 0, len(schema))

	for _, field := range schema {
		res := a.resolver.Resolve(doc, field.Label)
		if res.Found {
			rec.Fields[field.Key] = res.Value
			a.log.LogDebugf("entity %s: %s = %q (%s)", entity.ID, field.Key, res.Value, res.Strategy)
		} else {
			a.log.LogInfof("entity %s: field %q not found (%s)", entity.ID, field.Label, res.Reason)
		}
		rec.Outcomes = append(rec.Outcomes, Outcome{
			Key:      field.Key,
			Label:    field.Label,
			Found:    res.Found,
			Strategy: res.Strategy,
			Reason:   res.Reason,
		})
	}

	rec.finalize(entity.ID, entity.TargetLocation, extractedAt)
	return rec
}

// FailedRecord builds the schema-complete empty record written when an
// entity's page could not be reached at all. The batch keeps going; the
// failure stays visible in the artifact via extraction_success=false.
func FailedRecord(entity jobsource.EntityJob, schema []FieldDefinition, extractedAt time.Time, reason string) *VerificationRecord {
	rec := newRecord(schema)
	rec.Outcomes = make([]Outcome, 0, len(schema))
	for _, field := range schema {
		rec.Outcomes = append(rec.Outcomes, Outcome{
			Key:    field.Key,
			Label:  field.Label,
			Found:  false,
			Reason: reason,
		})
	}
	rec.finalize(entity.ID, entity.TargetLocation, extractedAt)
	return rec
}

package audit

import (
	"podracer/internal/catalog"
	"podracer/internal/linkcheck"
)

// Indices are the aggregates built by one Engine run. They are written only
// by the engine and are read-only once Analyze returns.
type Indices struct {
	ByIdentifier    map[string][]*catalog.DatasetRecord
	ByTitle         map[string][]*catalog.DatasetRecord
	ByPublisherPath map[catalog.Tuple][]*catalog.DatasetRecord

	KeywordCounts     map[string]int
	LicenseCounts     map[string]int
	AccessLevelCounts map[string]int
	ProgramCodeCounts map[catalog.Tuple]int
	BureauCodeCounts  map[catalog.Tuple]int
	ContactCounts     map[catalog.Contact]int

	LinkFailures []LinkFailure
}

// LinkFailure is the structured form of a failed probe diagnostic.
type LinkFailure struct {
	Dataset int               `json:"dataset"`
	Title   string            `json:"title"`
	Field   string            `json:"field"`
	Outcome linkcheck.Outcome `json:"outcome"`
}

func newIndices() *Indices {
	return &Indices{
		ByIdentifier:      make(map[string][]*catalog.DatasetRecord),
		ByTitle:           make(map[string][]*catalog.DatasetRecord),
		ByPublisherPath:   make(map[catalog.Tuple][]*catalog.DatasetRecord),
		KeywordCounts:     make(map[string]int),
		LicenseCounts:     make(map[string]int),
		AccessLevelCounts: make(map[string]int),
		ProgramCodeCounts: make(map[catalog.Tuple]int),
		BureauCodeCounts:  make(map[catalog.Tuple]int),
		ContactCounts:     make(map[catalog.Contact]int),
	}
}

// add counts one record in every index. Program and bureau codes are
// counted by their whole ordered sequence.
func (x *Indices) add(rec *catalog.DatasetRecord) {
	x.LicenseCounts[rec.License]++
	x.ProgramCodeCounts[rec.ProgramCodes]++
	x.BureauCodeCounts[rec.BureauCodes]++
	x.AccessLevelCounts[rec.AccessLevel]++
	x.ContactCounts[rec.Contact]++

	x.ByIdentifier[rec.Identifier] = append(x.ByIdentifier[rec.Identifier], rec)
	x.ByTitle[rec.Title] = append(x.ByTitle[rec.Title], rec)
	x.ByPublisherPath[rec.PublisherPath] = append(x.ByPublisherPath[rec.PublisherPath], rec)

	for _, kw := range rec.Keywords {
		x.KeywordCounts[kw]++
	}
}

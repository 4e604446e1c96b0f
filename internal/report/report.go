// Package report turns the finished indices of an audit run into ordered,
// deterministic sections and renders them as text, tables or JSON.
package report

import (
	"cmp"
	"net"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"

	"podracer/internal/affinity"
	"podracer/internal/audit"
	"podracer/internal/catalog"
)

// Duplicate is a key shared by more than one dataset.
type Duplicate struct {
	Key    string   `json:"key"`
	Titles []string `json:"titles"`
}

// Questionable is a keyword that trips at least one rule.
type Questionable struct {
	Keyword string   `json:"keyword"`
	Reasons []Reason `json:"reasons"`
}

// Count is one row of a count section. Values holds the parts of a
// composite key (code sequences, publisher paths, contacts).
type Count struct {
	Key    string   `json:"key"`
	Values []string `json:"values,omitempty"`
	Count  int      `json:"count"`
}

// Section is a titled list of counts.
type Section struct {
	Title  string  `json:"title"`
	Label  string  `json:"label"`
	Counts []Count `json:"counts"`
}

// Total sums the section's counts.
func (s Section) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Count
	}
	return n
}

// DomainFailures groups failed probes by registrable domain.
type DomainFailures struct {
	Domain   string              `json:"domain"`
	Failures []audit.LinkFailure `json:"failures"`
}

// Report is the assembled, render-ready view of one run.
type Report struct {
	RunID         string   `json:"run_id"`
	ManifestID    string   `json:"manifest_id"`
	Datasets      int      `json:"datasets"`
	Distributions int      `json:"distributions"`
	Analyzed      int      `json:"analyzed"`
	Skipped       int      `json:"skipped"`
	Messages      []string `json:"messages"`

	DuplicateIdentifiers []Duplicate    `json:"duplicate_identifiers"`
	DuplicateTitles      []string       `json:"duplicate_titles"`
	Questionable         []Questionable `json:"questionable_keywords"`

	Keywords     Section `json:"keywords"`
	Licenses     Section `json:"licenses"`
	Programs     Section `json:"programs"`
	Bureaus      Section `json:"bureaus"`
	AccessLevels Section `json:"access_levels"`
	Contacts     Section `json:"contacts"`
	Publishers   Section `json:"publishers"`

	LinkFailures []DomainFailures `json:"link_failures,omitempty"`

	// Clusters is set when keyword clustering ran alongside the report.
	Clusters *affinity.Result `json:"keyword_clusters,omitempty"`
}

// Sections returns the count sections in report order.
func (r *Report) Sections() []Section {
	return []Section{r.Keywords, r.Licenses, r.Programs, r.Bureaus, r.AccessLevels, r.Contacts, r.Publishers}
}

// Build assembles the report. It only reads res.
func Build(res *audit.Result) *Report {
	idx := res.Indices
	r := &Report{
		RunID:         res.RunID,
		ManifestID:    res.ManifestID,
		Datasets:      res.Datasets,
		Distributions: res.Distributions,
		Analyzed:      res.Analyzed,
		Skipped:       res.Skipped,
		Messages:      slices.Clone(res.Messages),
	}

	for _, id := range sortedKeys(idx.ByIdentifier) {
		recs := idx.ByIdentifier[id]
		if len(recs) < 2 {
			continue
		}
		d := Duplicate{Key: id}
		for _, rec := range recs {
			d.Titles = append(d.Titles, rec.Title)
		}
		r.DuplicateIdentifiers = append(r.DuplicateIdentifiers, d)
	}
	for _, title := range sortedKeys(idx.ByTitle) {
		if len(idx.ByTitle[title]) > 1 {
			r.DuplicateTitles = append(r.DuplicateTitles, title)
		}
	}

	for _, kw := range sortedKeys(idx.KeywordCounts) {
		if rs := QuestionableReasons(kw); len(rs) > 0 {
			r.Questionable = append(r.Questionable, Questionable{Keyword: kw, Reasons: rs})
		}
	}

	r.Keywords = Section{Title: "Keyword counts", Label: "Keyword"}
	for _, kw := range keywordOrder(idx.KeywordCounts) {
		r.Keywords.Counts = append(r.Keywords.Counts, Count{Key: kw, Count: idx.KeywordCounts[kw]})
	}
	r.Licenses = stringSection("License counts", "License", idx.LicenseCounts)
	r.AccessLevels = stringSection("Access level counts", "Access level", idx.AccessLevelCounts)
	r.Programs = tupleSection("Program counts", "Program", idx.ProgramCodeCounts)
	r.Bureaus = tupleSection("Bureau counts", "Bureau", idx.BureauCodeCounts)

	r.Contacts = Section{Title: "Contact counts", Label: "Contact"}
	contacts := make([]catalog.Contact, 0, len(idx.ContactCounts))
	for c := range idx.ContactCounts {
		contacts = append(contacts, c)
	}
	slices.SortFunc(contacts, func(a, b catalog.Contact) int {
		return cmp.Or(strings.Compare(a.FullName, b.FullName), strings.Compare(a.Email, b.Email))
	})
	for _, c := range contacts {
		r.Contacts.Counts = append(r.Contacts.Counts, Count{
			Key:    contactKey(c),
			Values: []string{c.FullName, c.Email},
			Count:  idx.ContactCounts[c],
		})
	}

	publishers := make(map[catalog.Tuple]int, len(idx.ByPublisherPath))
	for path, recs := range idx.ByPublisherPath {
		publishers[path] = len(recs)
	}
	r.Publishers = tupleSection("Publisher counts", "Publisher", publishers)

	r.LinkFailures = groupByDomain(idx.LinkFailures)
	return r
}

func contactKey(c catalog.Contact) string {
	switch {
	case c.FullName == "" && c.Email == "":
		return catalog.None
	case c.Email == "":
		return c.FullName
	}
	return strings.TrimSpace(c.FullName + " <" + c.Email + ">")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// keywordOrder sorts keywords case-insensitively, breaking ties on the raw
// key so that "Water" and "water" keep a stable order.
func keywordOrder(counts map[string]int) []string {
	fold := cases.Fold()
	keys := make([]string, 0, len(counts))
	folded := make(map[string]string, len(counts))
	for k := range counts {
		keys = append(keys, k)
		folded[k] = fold.String(k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(strings.Compare(folded[a], folded[b]), strings.Compare(a, b))
	})
	return keys
}

func stringSection(title, label string, counts map[string]int) Section {
	s := Section{Title: title, Label: label}
	for _, k := range sortedKeys(counts) {
		s.Counts = append(s.Counts, Count{Key: k, Count: counts[k]})
	}
	return s
}

func tupleSection(title, label string, counts map[catalog.Tuple]int) Section {
	keys := make([]catalog.Tuple, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, catalog.Tuple.Compare)

	s := Section{Title: title, Label: label}
	for _, k := range keys {
		s.Counts = append(s.Counts, Count{Key: k.String(), Values: k.Values(), Count: counts[k]})
	}
	return s
}

// groupByDomain buckets failures by the registrable domain of their URL,
// keeping input order inside each bucket.
func groupByDomain(failures []audit.LinkFailure) []DomainFailures {
	if len(failures) == 0 {
		return nil
	}
	byDomain := make(map[string][]audit.LinkFailure)
	for _, f := range failures {
		d := domainOf(f.Outcome.URL)
		byDomain[d] = append(byDomain[d], f)
	}
	out := make([]DomainFailures, 0, len(byDomain))
	for _, d := range sortedKeys(byDomain) {
		out = append(out, DomainFailures{Domain: d, Failures: byDomain[d]})
	}
	return out
}

const unknownDomain = "(unknown)"

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return unknownDomain
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

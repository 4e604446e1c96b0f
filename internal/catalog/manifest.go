package catalog

// MissingID labels manifests without an "@id".
const MissingID = "<missing @id>"

// Manifest is the decoded top-level catalog document. Datasets holds the
// raw entries; they are parsed one at a time by the audit engine so that a
// malformed entry only costs itself.
type Manifest struct {
	ID       string
	Datasets []any

	// Counts of the optional top-level "source" and "collection" lists;
	// -1 when the list is absent.
	SourceCount     int
	CollectionCount int
}

// ParseManifest validates the decoded document. It fails with a
// *FatalInputError when there is nothing to analyze.
func ParseManifest(raw any) (*Manifest, error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &FatalInputError{Reason: "document is not a JSON object"}
	}
	ds, present := doc["dataset"]
	if !present {
		return nil, &FatalInputError{Reason: `missing required "dataset" field`}
	}
	list, ok := ds.([]any)
	if !ok {
		return nil, &FatalInputError{Reason: `"dataset" is not a list`}
	}

	return &Manifest{
		ID:              str(doc, "@id", MissingID),
		Datasets:        list,
		SourceCount:     listLen(doc, "source"),
		CollectionCount: listLen(doc, "collection"),
	}, nil
}

// DistributionCount counts distribution entries across all datasets,
// including those of entries that turn out to be malformed.
func (m *Manifest) DistributionCount() int {
	n := 0
	for _, d := range m.Datasets {
		if dm, ok := d.(map[string]any); ok {
			if dists, ok := dm["distribution"].([]any); ok {
				n += len(dists)
			}
		}
	}
	return n
}

func listLen(m map[string]any, key string) int {
	if l, ok := m[key].([]any); ok {
		return len(l)
	}
	return -1
}

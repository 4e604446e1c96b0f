package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func TestParseRecord_Defaults(t *testing.T) {
	rec, err := ParseRecord(decode(t, `{"title": "Crop Yields"}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.Identifier != None {
		t.Errorf("Identifier = %q, want %q", rec.Identifier, None)
	}
	if rec.License != None || rec.AccessLevel != None {
		t.Errorf("License/AccessLevel = %q/%q, want NONE/NONE", rec.License, rec.AccessLevel)
	}
	if rec.ProgramCodes != NewTuple(None) {
		t.Errorf("ProgramCodes = %v, want [NONE]", rec.ProgramCodes.Values())
	}
	if rec.BureauCodes != NewTuple(None) {
		t.Errorf("BureauCodes = %v, want [NONE]", rec.BureauCodes.Values())
	}
	if rec.Contact != (Contact{}) {
		t.Errorf("Contact = %+v, want zero", rec.Contact)
	}
	if rec.PublisherPath != NoPublisher {
		t.Errorf("PublisherPath = %v, want %v", rec.PublisherPath, NoPublisher)
	}
	if len(rec.Keywords) != 0 || len(rec.Distributions) != 0 || rec.LandingPage != "" {
		t.Errorf("expected empty keywords, distributions and landing page, got %+v", rec)
	}
}

func TestParseRecord_AllFields(t *testing.T) {
	rec, err := ParseRecord(decode(t, `{
		"identifier": "usda-001",
		"title": "Crop Yields",
		"license": "http://opendefinition.org/licenses/odc-pddl/",
		"programCode": ["005:040", "005:041"],
		"bureauCode": ["005:12"],
		"accessLevel": "public",
		"contactPoint": {"fn": "Jane Doe", "hasEmail": "mailto:jane@example.gov"},
		"publisher": {"name": "NASS", "subOrganizationOf": {"name": "USDA"}},
		"keyword": ["agriculture", "crops", "agriculture"],
		"landingPage": "https://example.gov/crops",
		"distribution": [
			{"title": "CSV", "downloadURL": "https://example.gov/crops.csv"},
			{"Title": "API", "accessURL": "https://example.gov/api"},
			"not an object"
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}

	if rec.Identifier != "usda-001" || rec.Title != "Crop Yields" || rec.AccessLevel != "public" {
		t.Errorf("unexpected scalars: %+v", rec)
	}
	if diff := cmp.Diff([]string{"005:040", "005:041"}, rec.ProgramCodes.Values()); diff != "" {
		t.Errorf("ProgramCodes mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(Contact{FullName: "Jane Doe", Email: "mailto:jane@example.gov"}, rec.Contact); diff != "" {
		t.Errorf("Contact mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"USDA", "NASS"}, rec.PublisherPath.Values()); diff != "" {
		t.Errorf("PublisherPath mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"agriculture", "crops", "agriculture"}, rec.Keywords); diff != "" {
		t.Errorf("Keywords mismatch (duplicates must be kept):\n%s", diff)
	}

	if len(rec.Distributions) != 2 {
		t.Fatalf("len(Distributions) = %d, want 2", len(rec.Distributions))
	}
	d0, d1 := rec.Distributions[0], rec.Distributions[1]
	if d0.Title != "CSV" || d0.DownloadURL == nil || *d0.DownloadURL != "https://example.gov/crops.csv" || d0.AccessURL != nil {
		t.Errorf("unexpected first distribution: %+v", d0)
	}
	if d1.Title != "API" || d1.AccessURL == nil || d1.DownloadURL != nil {
		t.Errorf("unexpected second distribution: %+v", d1)
	}
}

func TestParseRecord_LegacyContactPoint(t *testing.T) {
	rec, err := ParseRecord(decode(t, `{"title": "T", "contactPoint": "John Roe", "mbox": "john@example.gov"}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	want := Contact{FullName: "John Roe", Email: "john@example.gov"}
	if rec.Contact != want {
		t.Errorf("Contact = %+v, want %+v", rec.Contact, want)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"missing title", `{"identifier": "x"}`, "title"},
		{"non-string title", `{"title": 42}`, "title"},
		{"not an object", `["title"]`, ""},
		{"nameless publisher", `{"title": "T", "publisher": {"subOrganizationOf": "USDA"}}`, "publisher"},
		{"publisher of wrong type", `{"title": "T", "publisher": 7}`, "publisher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(decode(t, tt.input))
			if !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("err = %v, want ErrMalformedRecord", err)
			}
			var re *RecordError
			if !errors.As(err, &re) {
				t.Fatalf("err = %T, want *RecordError", err)
			}
			if re.Field != tt.field {
				t.Errorf("Field = %q, want %q", re.Field, tt.field)
			}
		})
	}
}

func TestParseRecord_CodesAsBareString(t *testing.T) {
	rec, err := ParseRecord(decode(t, `{"title": "T", "programCode": "015:001", "bureauCode": []}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.ProgramCodes != NewTuple("015:001") {
		t.Errorf("ProgramCodes = %v, want [015:001]", rec.ProgramCodes.Values())
	}
	if rec.BureauCodes != NewTuple() {
		t.Errorf("BureauCodes = %v, want empty tuple", rec.BureauCodes.Values())
	}
}

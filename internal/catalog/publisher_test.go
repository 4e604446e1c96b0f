package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPublisherPath_TopDown(t *testing.T) {
	p := Node("Forest Service", Node("USDA", Leaf("Executive Branch")))
	path, err := p.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	want := []string{"Executive Branch", "USDA", "Forest Service"}
	if diff := cmp.Diff(want, path.Values()); diff != "" {
		t.Errorf("Path mismatch:\n%s", diff)
	}

	again, err := p.Path()
	if err != nil {
		t.Fatalf("second Path: %v", err)
	}
	if again != path {
		t.Errorf("Path is not idempotent: %v then %v", path, again)
	}
}

func TestPublisherPath_BareString(t *testing.T) {
	p, err := parsePublisher("Department of Commerce")
	if err != nil {
		t.Fatalf("parsePublisher: %v", err)
	}
	if p.parent != nil {
		t.Error("bare string publisher should have no parent")
	}
	path, _ := p.Path()
	if diff := cmp.Diff([]string{"Department of Commerce"}, path.Values()); diff != "" {
		t.Errorf("Path mismatch:\n%s", diff)
	}
}

func TestParsePublisher_StringParent(t *testing.T) {
	p, err := parsePublisher(map[string]any{"name": "NOAA", "subOrganizationOf": "Department of Commerce"})
	if err != nil {
		t.Fatalf("parsePublisher: %v", err)
	}
	path, _ := p.Path()
	if diff := cmp.Diff([]string{"Department of Commerce", "NOAA"}, path.Values()); diff != "" {
		t.Errorf("Path mismatch:\n%s", diff)
	}
}

func TestParsePublisher_EmptyParentTerminates(t *testing.T) {
	for _, parent := range []any{nil, "", map[string]any{}} {
		p, err := parsePublisher(map[string]any{"name": "GSA", "subOrganizationOf": parent})
		if err != nil {
			t.Fatalf("parent %#v: %v", parent, err)
		}
		path, _ := p.Path()
		if path != NewTuple("GSA") {
			t.Errorf("parent %#v: path = %v, want [GSA]", parent, path.Values())
		}
	}
}

func TestParsePublisher_DepthGuard(t *testing.T) {
	var raw any = "root"
	for i := 0; i < MaxPublisherDepth+1; i++ {
		raw = map[string]any{"name": fmt.Sprintf("org-%d", i), "subOrganizationOf": raw}
	}
	_, err := parsePublisher(raw)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestPublisherPath_DepthGuard(t *testing.T) {
	p := Leaf("root")
	for i := 0; i < MaxPublisherDepth; i++ {
		p = Node(fmt.Sprintf("org-%d", i), p)
	}
	if _, err := p.Path(); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestPublisherPath_Nil(t *testing.T) {
	var p *Publisher
	path, err := p.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != NoPublisher {
		t.Errorf("Path = %v, want %v", path, NoPublisher)
	}
}

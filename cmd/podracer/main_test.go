package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const manifestDoc = `{
  "@id": "cli-test",
  "dataset": [
    {"identifier": "A", "title": "Budget Tables", "keyword": ["budget", "budgets"], "accessLevel": "public"},
    {"identifier": "A", "title": "Zoo Census", "keyword": ["zoology"], "accessLevel": "public"}
  ]
}`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(manifestDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAudit_JSONReport(t *testing.T) {
	out, err := execute(t, "audit", writeManifest(t), "--format", "json")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	var got struct {
		ManifestID string `json:"manifest_id"`
		Analyzed   int    `json:"analyzed"`
		Duplicates []struct {
			Key    string   `json:"key"`
			Titles []string `json:"titles"`
		} `json:"duplicate_identifiers"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.ManifestID != "cli-test" || got.Analyzed != 2 {
		t.Errorf("manifest_id=%q analyzed=%d", got.ManifestID, got.Analyzed)
	}
	want := []string{"Budget Tables", "Zoo Census"}
	if len(got.Duplicates) != 1 || got.Duplicates[0].Key != "A" {
		t.Fatalf("duplicates = %+v", got.Duplicates)
	}
	if diff := cmp.Diff(want, got.Duplicates[0].Titles); diff != "" {
		t.Errorf("titles (-want +got):\n%s", diff)
	}
}

func TestAudit_JSONWithClustersIsOneDocument(t *testing.T) {
	out, err := execute(t, "audit", writeManifest(t), "--format", "json", "--keyword-cluster")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	dec := json.NewDecoder(strings.NewReader(out))
	var got struct {
		Clusters struct {
			Clusters map[string][]string `json:"clusters"`
		} `json:"keyword_clusters"`
	}
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if dec.More() {
		t.Errorf("more than one JSON document on stdout:\n%s", out)
	}
	var members []string
	for _, ms := range got.Clusters.Clusters {
		members = append(members, ms...)
	}
	if len(members) != 3 {
		t.Errorf("clustered keywords = %v, want budget, budgets and zoology", members)
	}
}

func TestAudit_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "audit", writeManifest(t), "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Errorf("err = %v, want unknown format", err)
	}
}

func TestAudit_RejectsInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "podracer.yaml")
	if err := os.WriteFile(cfg, []byte("link_check:\n  parallel: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	defer func() { rootFlags.config = "" }()

	_, err := execute(t, "audit", writeManifest(t), "--config", cfg, "--format", "text")
	if err == nil || !strings.Contains(err.Error(), "link_check.parallel") {
		t.Errorf("err = %v, want parallel validation error", err)
	}
}

func TestCluster_TextOutput(t *testing.T) {
	out, err := execute(t, "cluster", writeManifest(t))
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if !strings.HasPrefix(out, "Keyword Clusters\n") {
		t.Errorf("output = %q", out)
	}
	for _, kw := range []string{`"budget"`, `"budgets"`, `"zoology"`} {
		if !strings.Contains(out, kw) {
			t.Errorf("output missing %s:\n%s", kw, out)
		}
	}
	if strings.Contains(out, "Duplicate Identifiers") {
		t.Error("cluster must not print the audit report")
	}
}

func TestRoot_BadLogLevel(t *testing.T) {
	defer func() { rootFlags.logLevel = "warn" }()
	_, err := execute(t, "--log-level", "chatty", "cluster", writeManifest(t))
	if err == nil {
		t.Error("expected error for unknown log level")
	}
}

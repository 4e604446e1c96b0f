package wiring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"podracer/internal/affinity"
	"podracer/internal/catalog"
	"podracer/internal/linkcheck"
	"podracer/internal/logging"
	"podracer/internal/manifest"
	"podracer/internal/report"
)

func newLoader() *manifest.Loader {
	l, err := manifest.New(manifest.WithLogger(logging.Discard()))
	gomega.Expect(err).To(gomega.Succeed())
	return l
}

func fixturePath() string {
	return filepath.Join("testdata", "catalog.json")
}

var _ = ginkgo.Describe("Run", func() {
	var (
		ctx context.Context
		out bytes.Buffer
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		out.Reset()
	})

	ginkgo.It("buckets datasets sharing an identifier and keeps titles apart", func() {
		res, err := Run(ctx, newLoader(), fixturePath(), &out, Options{})
		gomega.Expect(err).To(gomega.Succeed())

		idx := res.Result.Indices
		gomega.Expect(idx.ByIdentifier["X"]).To(gomega.HaveLen(2))
		gomega.Expect(idx.ByTitle["Daily Rainfall Totals"]).To(gomega.HaveLen(1))
		gomega.Expect(idx.ByTitle["Snowfall Observations"]).To(gomega.HaveLen(1))
		gomega.Expect(res.Result.Analyzed).To(gomega.Equal(4))
		gomega.Expect(res.Result.Skipped).To(gomega.Equal(1))
	})

	ginkgo.It("counts code sequences by order and resolves publisher paths top-down", func() {
		res, err := Run(ctx, newLoader(), fixturePath(), &out, Options{})
		gomega.Expect(err).To(gomega.Succeed())

		idx := res.Result.Indices
		gomega.Expect(idx.ProgramCodeCounts[catalog.NewTuple("015:001", "015:002")]).To(gomega.Equal(1))
		gomega.Expect(idx.ProgramCodeCounts[catalog.NewTuple("015:002", "015:001")]).To(gomega.Equal(1))
		gomega.Expect(idx.ProgramCodeCounts[catalog.NewTuple("006:059")]).To(gomega.Equal(2))

		nws := catalog.NewTuple("Department of Commerce", "NOAA", "National Weather Service")
		gomega.Expect(idx.ByPublisherPath[nws]).To(gomega.HaveLen(2))
		gomega.Expect(idx.ByPublisherPath[catalog.NewTuple("Office of the CFO")]).To(gomega.HaveLen(1))
	})

	ginkgo.It("renders the report sections in a fixed order", func() {
		_, err := Run(ctx, newLoader(), fixturePath(), &out, Options{Format: report.Text})
		gomega.Expect(err).To(gomega.Succeed())

		text := out.String()
		sections := []string{
			"Analysis of https://data.example.gov/data.json",
			"Dataset 4 skipped: malformed record: title: missing",
			"Duplicate Identifiers\n  Identifier: X\n    Dataset: Daily Rainfall Totals\n    Dataset: Snowfall Observations\n",
			"Duplicate Titles",
			"Questionable Keywords",
			`  "appropriations "FY24"" - contains a double quote`,
			`  "wildlife of the northern pacific coastal ranges survey" - contains too many words?`,
			"Keyword counts",
			"License counts",
			"Program counts",
			"Bureau counts",
			"Access level counts",
			"Contact counts",
			"Publisher counts",
		}
		last := -1
		for _, s := range sections {
			i := strings.Index(text, s)
			gomega.Expect(i).To(gomega.BeNumerically(">", last), "section %q out of order or missing", s)
			last = i
		}
		gomega.Expect(text).NotTo(gomega.ContainSubstring("Link failures by domain"))
	})

	ginkgo.It("aborts on a manifest without datasets before writing anything", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "bad.json")
		gomega.Expect(os.WriteFile(path, []byte(`{"@id": "x"}`), 0o600)).To(gomega.Succeed())

		_, err := Run(ctx, newLoader(), path, &out, Options{})
		gomega.Expect(catalog.IsFatalInput(err)).To(gomega.BeTrue(), "err = %v", err)
		gomega.Expect(out.Len()).To(gomega.BeZero())
	})

	ginkgo.It("clusters keywords as a partition of the keyword index", func() {
		res, err := Run(ctx, newLoader(), fixturePath(), &out, Options{SkipReport: true, Cluster: true})
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(out.String()).To(gomega.HavePrefix("Keyword Clusters\n"))

		var members []string
		for ex, ms := range res.Clusters.Clusters {
			gomega.Expect(ms).To(gomega.ContainElement(ex))
			members = append(members, ms...)
		}
		var keywords []string
		for k := range res.Result.Indices.KeywordCounts {
			keywords = append(keywords, k)
		}
		gomega.Expect(members).To(gomega.ConsistOf(keywords))
	})

	ginkgo.It("writes a single JSON document when clustering a JSON report", func() {
		res, err := Run(ctx, newLoader(), fixturePath(), &out, Options{Format: report.JSON, Cluster: true})
		gomega.Expect(err).To(gomega.Succeed())

		dec := json.NewDecoder(&out)
		var doc struct {
			ManifestID string           `json:"manifest_id"`
			Clusters   *affinity.Result `json:"keyword_clusters"`
		}
		gomega.Expect(dec.Decode(&doc)).To(gomega.Succeed())
		gomega.Expect(dec.More()).To(gomega.BeFalse(), "trailing output after the report")
		gomega.Expect(doc.ManifestID).To(gomega.Equal("https://data.example.gov/data.json"))
		gomega.Expect(doc.Clusters).NotTo(gomega.BeNil())
		gomega.Expect(doc.Clusters.Clusters).To(gomega.Equal(res.Clusters.Clusters))
	})

	ginkgo.Describe("with link checking", func() {
		var (
			plain   *httptest.Server
			tlsSrv  *httptest.Server
			dead    string
			catPath string
		)

		ginkgo.BeforeEach(func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/ok", func(http.ResponseWriter, *http.Request) {})
			plain = httptest.NewServer(mux)
			tlsSrv = httptest.NewTLSServer(mux)

			closed := httptest.NewServer(mux)
			dead = closed.URL
			closed.Close()

			doc := fmt.Sprintf(`{"@id": "links", "dataset": [
				{"title": "Fine", "landingPage": "%[1]s/ok",
				 "distribution": [{"title": "self-signed", "downloadURL": "%[2]s/ok"}]},
				{"title": "Broken", "landingPage": "%[3]s/",
				 "distribution": [{"title": "gone", "accessURL": "%[1]s/gone"}]}
			]}`, plain.URL, tlsSrv.URL, dead)
			catPath = filepath.Join(ginkgo.GinkgoT().TempDir(), "links.json")
			gomega.Expect(os.WriteFile(catPath, []byte(doc), 0o600)).To(gomega.Succeed())
		})

		ginkgo.AfterEach(func() {
			plain.Close()
			tlsSrv.Close()
		})

		ginkgo.It("reports failures, skips TLS problems and writes metrics", func() {
			reg := prometheus.NewRegistry()
			checker, err := linkcheck.New(
				linkcheck.WithPacer(linkcheck.NoDelay()),
				linkcheck.WithLogger(logging.Discard()),
				linkcheck.WithRegisterer(reg),
			)
			gomega.Expect(err).To(gomega.Succeed())

			metricsPath := filepath.Join(ginkgo.GinkgoT().TempDir(), "podracer.prom")
			res, err := Run(ctx, newLoader(), catPath, &out, Options{
				Prober:      checker,
				Parallel:    4,
				Metrics:     reg,
				MetricsFile: metricsPath,
			})
			gomega.Expect(err).To(gomega.Succeed())

			failures := res.Result.Indices.LinkFailures
			gomega.Expect(failures).To(gomega.HaveLen(2))
			gomega.Expect(failures[0].Outcome.Kind).To(gomega.Equal(linkcheck.ConnectionFailure))
			gomega.Expect(failures[1].Outcome.Kind).To(gomega.Equal(linkcheck.HTTPError))
			gomega.Expect(failures[1].Outcome.StatusCode).To(gomega.Equal(http.StatusNotFound))

			text := out.String()
			gomega.Expect(text).To(gomega.ContainSubstring("Dataset 1 Broken - landingPage check " + dead + "/ - CONNECTION FAILURE"))
			gomega.Expect(text).To(gomega.ContainSubstring("Dataset 1 Broken has distribution problems:\n  accessURL " + plain.URL + "/gone - HTTP ERROR 404"))
			gomega.Expect(text).NotTo(gomega.ContainSubstring("Dataset 0"))
			gomega.Expect(text).To(gomega.ContainSubstring("Link failures by domain"))

			prom, err := os.ReadFile(metricsPath)
			gomega.Expect(err).To(gomega.Succeed())
			gomega.Expect(string(prom)).To(gomega.ContainSubstring(`podracer_link_checks_total{outcome="skipped_tls"} 1`))
		})
	})
})

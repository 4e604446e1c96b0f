package mcp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"podracer/internal/affinity"
	"podracer/internal/audit"
	"podracer/internal/config"
	"podracer/internal/linkcheck"
	"podracer/internal/logging"
	"podracer/internal/manifest"
	"podracer/internal/report"
)

// DefaultRunLimit is how many finished audits the server keeps for
// get_report and cluster_keywords.
var DefaultRunLimit = 16

// Server wraps the MCP SDK server and the audit runs it has completed.
type Server struct {
	MCPServer *sdkmcp.Server

	cfg    *config.Config
	loader *manifest.Loader
	logger *slog.Logger
	runs   *runStore
}

// NewServer creates an MCP server exposing the audit and clustering tools.
// Link checks and clustering use the settings in cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loader, err := manifest.New(
		manifest.WithTimeout(cfg.Manifest.Timeout.Std()),
		manifest.WithInsecureTLS(cfg.Manifest.InsecureTLS),
	)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		loader: loader,
		logger: logging.New("mcp"),
		runs:   newRunStore(DefaultRunLimit),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "podracer", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "audit_manifest",
		Description: "Audit a data.json catalog manifest (URL or local path). Returns the run ID, totals and the rendered quality report.",
	}, s.handleAuditManifest)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Render the report of a previous audit_manifest run in text, markdown or json.",
	}, s.handleGetReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "cluster_keywords",
		Description: "Group similar keywords with affinity propagation. Pass keyword counts directly or the run_id of a previous audit.",
	}, s.handleClusterKeywords)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_keyword",
		Description: "List the quality rules a single keyword trips (too many words, too long, double quote, non Latin-1).",
	}, s.handleCheckKeyword)
}

// --- Tool input/output types ---

type auditManifestInput struct {
	Source    string `json:"source" jsonschema:"manifest URL (http/https) or local file path"`
	LinkCheck bool   `json:"link_check,omitempty" jsonschema:"probe every landing page and distribution URL"`
	Verbose   bool   `json:"verbose,omitempty" jsonschema:"include per-dataset and per-distribution messages"`
	Format    string `json:"format,omitempty" jsonschema:"report format: text (default), markdown or json"`
}

type auditManifestOutput struct {
	RunID        string `json:"run_id"`
	ManifestID   string `json:"manifest_id"`
	Datasets     int    `json:"datasets"`
	Analyzed     int    `json:"analyzed"`
	Skipped      int    `json:"skipped"`
	LinkFailures int    `json:"link_failures"`
	Questionable int    `json:"questionable_keywords"`
	DuplicateIDs int    `json:"duplicate_identifiers"`
	Report       string `json:"report"`
}

type getReportInput struct {
	RunID  string `json:"run_id" jsonschema:"run ID from audit_manifest"`
	Format string `json:"format,omitempty" jsonschema:"text (default), ascii, markdown or json"`
}

type getReportOutput struct {
	RunID  string `json:"run_id"`
	Report string `json:"report"`
}

type clusterKeywordsInput struct {
	Keywords map[string]int `json:"keywords,omitempty" jsonschema:"keyword to occurrence count"`
	RunID    string         `json:"run_id,omitempty" jsonschema:"use the keyword counts of a previous audit run"`
}

type clusterKeywordsOutput struct {
	Clusters   map[string][]string `json:"clusters"`
	Converged  bool                `json:"converged"`
	Iterations int                 `json:"iterations"`
}

type checkKeywordInput struct {
	Keyword string `json:"keyword" jsonschema:"keyword to check"`
}

type checkKeywordOutput struct {
	Questionable bool     `json:"questionable"`
	Reasons      []string `json:"reasons"`
}

// --- Tool handlers ---

func (s *Server) handleAuditManifest(ctx context.Context, _ *sdkmcp.CallToolRequest, input auditManifestInput) (*sdkmcp.CallToolResult, auditManifestOutput, error) {
	if input.Source == "" {
		return nil, auditManifestOutput{}, fmt.Errorf("source is required")
	}
	mode, err := parseFormat(input.Format)
	if err != nil {
		return nil, auditManifestOutput{}, err
	}

	m, err := s.loader.Load(ctx, input.Source)
	if err != nil {
		return nil, auditManifestOutput{}, fmt.Errorf("audit_manifest: %w", err)
	}

	opts := []audit.Option{
		audit.WithVerbose(input.Verbose),
		audit.WithParallel(s.cfg.LinkCheck.Parallel),
	}
	if input.LinkCheck {
		checker, err := linkcheck.New(append(s.cfg.CheckerOptions(), linkcheck.WithLogger(logging.New("linkcheck")))...)
		if err != nil {
			return nil, auditManifestOutput{}, err
		}
		opts = append(opts, audit.WithLinkCheck(checker))
	}

	res, err := audit.New(opts...).Analyze(ctx, m)
	if err != nil {
		return nil, auditManifestOutput{}, fmt.Errorf("audit_manifest: %w", err)
	}
	rep := report.Build(res)
	s.runs.put(res.RunID, rep, res.Indices.KeywordCounts)
	s.logger.InfoContext(ctx, "audit finished", "run_id", res.RunID, "source", input.Source, "kept_runs", s.runs.Len())

	text, err := render(rep, mode)
	if err != nil {
		return nil, auditManifestOutput{}, err
	}
	return nil, auditManifestOutput{
		RunID:        res.RunID,
		ManifestID:   res.ManifestID,
		Datasets:     res.Datasets,
		Analyzed:     res.Analyzed,
		Skipped:      res.Skipped,
		LinkFailures: len(res.Indices.LinkFailures),
		Questionable: len(rep.Questionable),
		DuplicateIDs: len(rep.DuplicateIdentifiers),
		Report:       text,
	}, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	r, err := s.runs.get(input.RunID)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	mode, err := parseFormat(input.Format)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	text, err := render(r.report, mode)
	if err != nil {
		return nil, getReportOutput{}, err
	}
	return nil, getReportOutput{RunID: input.RunID, Report: text}, nil
}

func (s *Server) handleClusterKeywords(ctx context.Context, _ *sdkmcp.CallToolRequest, input clusterKeywordsInput) (*sdkmcp.CallToolResult, clusterKeywordsOutput, error) {
	counts := input.Keywords
	if input.RunID != "" {
		if len(counts) > 0 {
			return nil, clusterKeywordsOutput{}, fmt.Errorf("pass either keywords or run_id, not both")
		}
		r, err := s.runs.get(input.RunID)
		if err != nil {
			return nil, clusterKeywordsOutput{}, err
		}
		counts = r.keywords
	}
	if len(counts) == 0 {
		return nil, clusterKeywordsOutput{}, fmt.Errorf("keywords or run_id is required")
	}

	res := affinity.Cluster(counts, s.cfg.ClusterOptions()...)
	s.logger.InfoContext(ctx, "keywords clustered", "keywords", len(counts), "clusters", len(res.Clusters), "converged", res.Converged)
	return nil, clusterKeywordsOutput{
		Clusters:   res.Clusters,
		Converged:  res.Converged,
		Iterations: res.Iterations,
	}, nil
}

func (s *Server) handleCheckKeyword(_ context.Context, _ *sdkmcp.CallToolRequest, input checkKeywordInput) (*sdkmcp.CallToolResult, checkKeywordOutput, error) {
	reasons := report.QuestionableReasons(input.Keyword)
	out := checkKeywordOutput{Questionable: len(reasons) > 0, Reasons: []string{}}
	for _, r := range reasons {
		out.Reasons = append(out.Reasons, r.Text())
	}
	return nil, out, nil
}

func parseFormat(s string) (report.Mode, error) {
	if s == "" {
		return report.Text, nil
	}
	return report.ParseMode(s)
}

func render(r *report.Report, m report.Mode) (string, error) {
	var buf bytes.Buffer
	if err := report.Render(&buf, r, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

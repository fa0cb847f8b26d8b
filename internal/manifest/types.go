package manifest

// FileName is the report written next to converted outputs.
const FileName = "blpkit.report.json"

// Manifest is the top-level output of a blpkit convert run.
type Manifest struct {
	Version     int               `json:"version"`
	GeneratedAt string            `json:"generated_at"`
	BasePath    string            `json:"base_path"`
	RunInfo     *RunInfo          `json:"run_info,omitempty"`
	Assets      map[string]Asset  `json:"assets"`
	Failures    map[string]string `json:"failures,omitempty"` // source → error
	Stats       Stats             `json:"stats"`
}

// RunInfo captures run parameters for diagnostics.
type RunInfo struct {
	Workers         int    `json:"workers"`
	EagerAnalysis   bool   `json:"eager_analysis"`
	AnalysisTimeout string `json:"analysis_timeout"`
	ForcedFormat    string `json:"forced_format,omitempty"`
}

// Asset describes one converted source file.
type Asset struct {
	Source     SourceInfo      `json:"source"`
	Direction  string          `json:"direction"` // "blp-to-png" or "png-to-blp"
	Candidates []CandidateInfo `json:"candidates"`
	Selected   string          `json:"selected"`
	Output     Output          `json:"output"`
	Analysis   *AnalysisInfo   `json:"analysis,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// SourceInfo holds metadata about the source file.
type SourceInfo struct {
	Format          string            `json:"format"` // "blp" or the decoded image format
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Size            int64             `json:"size"`
	HasAlphaChannel bool              `json:"has_alpha_channel"`
	Header          map[string]string `json:"header,omitempty"` // BLP header descriptions
}

// CandidateInfo is one ranked candidate as offered for the asset.
type CandidateInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason,omitempty"`
}

// Output is the artifact written for the selected candidate.
type Output struct {
	Candidate string `json:"candidate"`
	Format    string `json:"format"` // "png" or "blp"
	Params    string `json:"params"`
	Size      int64  `json:"size"` // bytes on disk
	Hash      string `json:"hash"` // first 16 hex chars of xxhash64
	Path      string `json:"path"` // relative to base_path
}

// AnalysisInfo is the presentation-ready summary of an analysis result.
type AnalysisInfo struct {
	AlphaCoverage    float64 `json:"alpha_coverage"`
	AvgAlpha         float64 `json:"avg_alpha"`
	CompressionRatio float64 `json:"compression_ratio"`
	SizeSavings      float64 `json:"size_savings"`
	Grayscale        bool    `json:"grayscale"`
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalAssets      int   `json:"total_assets"`
	Failed           int   `json:"failed,omitempty"`
	Upgraded         int   `json:"upgraded,omitempty"` // assets whose analysis changed the default
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

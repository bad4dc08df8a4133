package mcptools

// --- MCP Tool Types ---
// These tools are exposed when the binary runs as an MCP server, so agent
// clients can call structured tools instead of shelling out to the CLI.

import "github.com/optiserve/geocoord/internal/history"

// CoordinateSiteInput is the input for the coordinate_site MCP tool.
type CoordinateSiteInput struct {
	CrawlExport string `json:"crawlExport" jsonschema:"path to the crawl export JSON file"`
	ReportPath  string `json:"reportPath,omitempty" jsonschema:"optional path to write the full JSON report to"`
}

// CoordinateSiteOutput is the result of the coordinate_site MCP tool.
type CoordinateSiteOutput struct {
	RunID             string  `json:"runId"`
	Site              string  `json:"site"`
	Recommendations   int     `json:"recommendations"`
	Conflicts         int     `json:"conflicts"`
	Phases            int     `json:"phases"`
	Blocked           int     `json:"blocked"`
	TotalDays         int     `json:"totalDays"`
	OverallConfidence float64 `json:"overallConfidence"`
	ReportPath        string  `json:"reportPath,omitempty"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Site  string `json:"site,omitempty" jsonschema:"filter runs to this site URL"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []history.RunSummary `json:"runs"`
}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"the run to fetch"`
}

// GetRunOutput is the result of the get_run MCP tool: the full stored
// report as JSON.
type GetRunOutput struct {
	Report string `json:"report"`
}

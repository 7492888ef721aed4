package model

// StructureDepth2 identifies the layout of Report.Results.
const StructureDepth2 = "depth_2_tree"

// ReportTimeLayout is the layout of Report.Timestamp.
const ReportTimeLayout = "2006-01-02 15:04:05"

// Report is the persisted result of exploring one app.
type Report struct {
	RunID      string            `yaml:"run_id" json:"run_id"`
	AppPackage string            `yaml:"app_package" json:"app_package"`
	Timestamp  string            `yaml:"timestamp" json:"timestamp"`
	Structure  string            `yaml:"structure" json:"structure"`
	Device     map[string]string `yaml:"device" json:"device"`
	Summary    Summary           `yaml:"summary" json:"summary"`
	Results    ResultTree        `yaml:"results" json:"results"`
}

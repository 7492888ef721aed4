// Package report assembles and persists exploration reports.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/platform"
	"go.uber.org/zap"
)

// Meta is the run metadata stored alongside the tree.
type Meta struct {
	AppPackage string
	Device     map[string]string
	Time       time.Time
}

// Assemble builds the report for one explored app. A nil tree becomes an
// empty one.
func Assemble(meta Meta, tree *model.ResultTree) *model.Report {
	if tree == nil {
		tree = model.NewResultTree()
	}
	if meta.Time.IsZero() {
		meta.Time = time.Now()
	}
	device := meta.Device
	if device == nil {
		device = map[string]string{}
	}
	return &model.Report{
		RunID:      uuid.NewString(),
		AppPackage: meta.AppPackage,
		Timestamp:  meta.Time.Format(model.ReportTimeLayout),
		Structure:  model.StructureDepth2,
		Device:     device,
		Summary:    tree.Summary(),
		Results:    *tree,
	}
}

// Writer saves reports into a directory.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter returns a Writer for dir. The directory is created on first
// save.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger.With(zap.String("component", "report")), now: time.Now}
}

// Save writes r as <dir>/report_tree_<unix>.json and returns the path. An
// existing file with the same name gets a numeric suffix.
func (w *Writer) Save(r *model.Report) (string, error) {
	if err := r.Results.Validate(); err != nil {
		return "", fmt.Errorf("invalid result tree: %w", err)
	}
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}

	base := fmt.Sprintf("report_tree_%d", w.now().Unix())
	path := filepath.Join(w.dir, base+".json")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.json", base, i))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	w.logger.Info("Report saved",
		zap.String("path", path),
		zap.String("package", r.AppPackage),
		zap.String("run_id", r.RunID))
	return path, nil
}

// Encode renders r as indented JSON without HTML escaping.
func Encode(r *model.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads a saved report.
func Load(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}

// Explorer produces the result tree for one package.
type Explorer interface {
	Explore(ctx context.Context, pkg string) (*model.ResultTree, error)
}

// Run explores pkg, assembles the report with the device description and
// saves it. A failed device query only leaves the device map empty.
func (w *Writer) Run(ctx context.Context, ex Explorer, info platform.Informer, pkg string) (string, *model.Report, error) {
	tree, err := ex.Explore(ctx, pkg)
	if err != nil {
		return "", nil, err
	}
	device, err := info.DeviceInfo(ctx)
	if err != nil {
		w.logger.Warn("Failed to read device info", zap.Error(err))
		device = nil
	}
	r := Assemble(Meta{AppPackage: pkg, Device: device, Time: w.now()}, tree)
	path, err := w.Save(r)
	if err != nil {
		return "", nil, err
	}
	return path, r, nil
}

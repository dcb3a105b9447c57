package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/chazu/kmlgraph/pkg/config"
	"github.com/chazu/kmlgraph/pkg/engine"
	"github.com/chazu/kmlgraph/pkg/graph"
	"github.com/chazu/kmlgraph/pkg/kml"
)

// App runs the load → build → check pipeline behind every command.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
}

// DiagnosticData is a JSON-serializable finding of parsing or building.
type DiagnosticData struct {
	Line    int    `json:"line"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}

// PartRef identifies a part inside its vessel.
type PartRef struct {
	Index int    `json:"index"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// VesselReport summarizes the structure of one vessel.
type VesselReport struct {
	Name     string    `json:"name"`
	Line     int       `json:"line"`
	Parts    int       `json:"parts"`
	Roots    int       `json:"roots"`
	Docked   int       `json:"docked"`
	Repair   []PartRef `json:"repair"`
	Findings []string  `json:"findings"`
}

// FileReport is the result of checking one file.
type FileReport struct {
	Path        string           `json:"path"`
	Size        string           `json:"size"`
	Vessels     []VesselReport   `json:"vessels"`
	Diagnostics []DiagnosticData `json:"diagnostics"`
}

// Problems counts diagnostics, repair flags and validation findings.
func (r *FileReport) Problems() int {
	n := len(r.Diagnostics)
	for _, v := range r.Vessels {
		n += len(v.Repair) + len(v.Findings)
	}
	return n
}

// QueryMatch is a part selected by a query.
type QueryMatch struct {
	Path   string `json:"path"`
	Vessel string `json:"vessel"`
	PartRef
}

// QueryResult is the full result of running a query over one file.
type QueryResult struct {
	Matches []QueryMatch       `json:"matches"`
	Errors  []engine.EvalError `json:"errors"`
}

// NewApp creates an App from a validated configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	e := engine.NewEngine()
	e.Timeout = cfg.Query.Timeout
	return &App{cfg: cfg, logger: logger, engine: e}
}

// load parses path, sending findings to sink and to the debug log.
func (a *App) load(path string, sink kml.Sink) ([]*kml.Item, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	items, err := kml.LoadFile(path, kml.WithSink(kml.Tee(sink, a.debugSink(path))))
	if err != nil {
		return nil, 0, err
	}
	return items, info.Size(), nil
}

func (a *App) debugSink(path string) kml.Sink {
	logger := a.logger.With("file", path)
	return kml.SinkFunc(func(item *kml.Item, msg string) {
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			kml.LogSink{Logger: logger}.Warn(item, msg)
		}
	})
}

// Check loads path, builds every vessel and reports what is broken.
func (a *App) Check(path string) (*FileReport, error) {
	var c kml.Collector
	items, size, err := a.load(path, &c)
	if err != nil {
		return nil, err
	}

	report := &FileReport{
		Path:        path,
		Size:        humanize.Bytes(uint64(size)),
		Vessels:     []VesselReport{},
		Diagnostics: []DiagnosticData{},
	}

	sink := kml.Tee(&c, a.debugSink(path))
	for _, v := range kml.Vessels(items) {
		s := graph.BuildVessel(v, sink)
		vr := VesselReport{
			Name:     vesselName(v),
			Line:     v.Line,
			Parts:    s.Len(),
			Roots:    len(s.Roots()),
			Repair:   []PartRef{},
			Findings: []string{},
		}
		for _, p := range s.Parts() {
			if len(s.Docked(p)) > 0 {
				vr.Docked++
			}
		}
		for _, p := range s.NeedsRepair() {
			vr.Repair = append(vr.Repair, partRef(s, p))
		}
		if a.cfg.Check.Validate {
			for _, f := range graph.Validate(s) {
				vr.Findings = append(vr.Findings, f.Error())
			}
		}
		if a.cfg.Check.RepairOnly && len(vr.Repair) == 0 {
			continue
		}
		report.Vessels = append(report.Vessels, vr)
	}

	if !a.cfg.Check.RepairOnly {
		for _, d := range c.Diagnostics {
			dd := DiagnosticData{Line: d.Line, Message: d.Message}
			if d.Item != nil {
				dd.Item = d.Item.String()
			}
			report.Diagnostics = append(report.Diagnostics, dd)
		}
	}

	a.logger.Debug("Checked file", "path", path, "size", report.Size, "vessels", len(report.Vessels))
	return report, nil
}

// CheckAll checks every path. Files that cannot be read are skipped and
// their errors aggregated.
func (a *App) CheckAll(paths []string) ([]*FileReport, error) {
	var reports []*FileReport
	var errs *multierror.Error
	for _, p := range paths {
		r, err := a.Check(p)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, errs.ErrorOrNil()
}

// Query selects the parts of every vessel in path for which expr holds.
// Evaluation errors end the query and are returned in the result.
func (a *App) Query(path, expr string) (*QueryResult, error) {
	items, _, err := a.load(path, kml.Discard)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Matches: []QueryMatch{}, Errors: []engine.EvalError{}}
	for _, v := range kml.Vessels(items) {
		s := graph.BuildVessel(v, kml.Discard)
		parts, evalErrs, err := a.engine.Select(s, expr)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", path, err)
		}
		if len(evalErrs) > 0 {
			result.Errors = append(result.Errors, evalErrs...)
			return result, nil
		}
		name := vesselName(v)
		for _, p := range parts {
			result.Matches = append(result.Matches, QueryMatch{Path: path, Vessel: name, PartRef: partRef(s, p)})
		}
	}
	return result, nil
}

// Format rewrites path in canonical layout, keeping its line ending. With
// write unset the result goes to w instead of the file.
func (a *App) Format(path string, w io.Writer, write bool) error {
	items, _, err := a.load(path, kml.Discard)
	if err != nil {
		return err
	}
	if write {
		return kml.Save(path, items)
	}
	return kml.WriteEOL(w, items, kml.FileLineEnding(path))
}

// NeedsFormat reports whether path differs from its canonical layout.
func (a *App) NeedsFormat(path string) (bool, error) {
	orig, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var buf bytes.Buffer
	if err := a.Format(path, &buf, false); err != nil {
		return false, err
	}
	return !bytes.Equal(orig, buf.Bytes()), nil
}

// Tree prints the document tree of path. Vessels additionally get their
// part hierarchy as resolved by the builder.
func (a *App) Tree(path string, w io.Writer, depth int) error {
	items, _, err := a.load(path, kml.Discard)
	if err != nil {
		return err
	}
	for _, it := range items {
		a.printItem(w, it, 0, depth)
	}
	return nil
}

func (a *App) printItem(w io.Writer, it *kml.Item, level, depth int) {
	if depth > 0 && level >= depth {
		return
	}
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", level), it)
	if it.Kind == kml.KindVessel {
		s := graph.BuildVessel(it, kml.Discard)
		for _, r := range s.Roots() {
			printHierarchy(w, s, r, level+1)
		}
		return
	}
	for _, c := range it.Children() {
		a.printItem(w, c, level+1, depth)
	}
}

func printHierarchy(w io.Writer, s *graph.Structure, p *kml.Item, level int) {
	var flags []string
	if d := p.Dock(); d != nil {
		flags = append(flags, d.State)
		if d.NeedsRepair {
			flags = append(flags, "needs repair")
		}
	}
	if t := s.SurfaceTarget(p); t != nil {
		flags = append(flags, "surface")
	}
	line := strings.Repeat("  ", level) + p.String()
	if len(flags) > 0 {
		line += " {" + strings.Join(flags, ", ") + "}"
	}
	fmt.Fprintln(w, line)
	for _, c := range s.Children(p) {
		printHierarchy(w, s, c, level+1)
	}
}

func vesselName(v *kml.Item) string {
	if name := v.AttribValue("name"); name != "" {
		return name
	}
	return v.Name
}

func partRef(s *graph.Structure, p *kml.Item) PartRef {
	ref := PartRef{Index: s.Index(p), Name: p.AttribValue("name")}
	if pd := p.Part(); pd != nil {
		ref.UID = pd.UID
		if ref.Name == "" {
			ref.Name = pd.CraftName
		}
	}
	if d := p.Dock(); d != nil {
		ref.State = d.State
	}
	return ref
}

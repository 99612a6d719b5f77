package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

// tableData is the input of the table template.
type tableData struct {
	Package      string
	Source       string
	DeviceName   string
	DeviceType   string
	Connectivity string
	FlashSizeMB  int
	LEDCount     int
	Endpoints    []resolver.Resolved
	Buttons      []config.ButtonConfig
}

var funcMap = template.FuncMap{
	"quote":   strconv.Quote,
	"literal": func(v any) string { return fmt.Sprintf("%#v", v) },
}

var tableTmpl = template.Must(template.New("table").Funcs(funcMap).Parse(`// Code generated by mash-configgen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/mash-protocol/mash-endpoint/internal/config"
	"github.com/mash-protocol/mash-endpoint/internal/resolver"
)

const (
	DeviceName   = {{quote .DeviceName}}
	DeviceType   = {{quote .DeviceType}}
	Connectivity = {{quote .Connectivity}}
	ThreadEnabled = {{.ThreadEnabled}}
	FlashSizeMB  = {{.FlashSizeMB}}
	LEDStripLEDCount = {{.LEDCount}}
	ButtonCount  = {{len .Buttons}}
	EndpointCount = {{len .Endpoints}}
)

// Endpoints holds the resolved endpoint configurations in file order.
var Endpoints = []resolver.Resolved{
{{- range .Endpoints}}
	{{literal .}},
{{- end}}
}

// Buttons holds the normalized button configurations in file order.
var Buttons = []config.ButtonConfig{
{{- range .Buttons}}
	{{literal .}},
{{- end}}
}
`))

// ThreadEnabled reports whether the connectivity includes Thread.
func (d *tableData) ThreadEnabled() bool {
	return d.Connectivity == config.ConnectivityThread || d.Connectivity == config.ConnectivityWiFiThread
}

// load reads and resolves the configuration at path. Resolution warnings
// go to stderr.
func load(path, pkg string) (*tableData, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	logger := config.NewLogger(config.LoggingConfig{Level: "warn"}, "configgen")
	data, err := newTableData(cfg, pkg, logger)
	if err != nil {
		return nil, err
	}
	data.Source = filepath.Base(path)
	return data, nil
}

func newTableData(cfg *config.Config, pkg string, logger *slog.Logger) (*tableData, error) {
	mb, err := flashSizeMB(cfg.App.FlashSize)
	if err != nil {
		return nil, err
	}
	data := &tableData{
		Package:      pkg,
		DeviceName:   cfg.App.DeviceName,
		DeviceType:   cfg.App.DeviceType,
		Connectivity: cfg.App.Connectivity,
		FlashSizeMB:  mb,
		Buttons:      cfg.App.Buttons,
	}
	if cfg.App.LEDStrip != nil {
		data.LEDCount = cfg.App.LEDStrip.LEDCount
	}
	for _, raw := range cfg.App.Endpoints {
		data.Endpoints = append(data.Endpoints, resolver.Resolve(raw, logger))
	}
	return data, nil
}

// Generate renders the table file for data.
func Generate(data *tableData) (string, error) {
	var b strings.Builder
	if err := tableTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return b.String(), nil
}

// flashSizeMB converts a normalized flash size such as "8MB" to megabytes.
func flashSizeMB(size string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(size, "MB"))
	if err != nil {
		return 0, fmt.Errorf("invalid flash size %q", size)
	}
	return n, nil
}

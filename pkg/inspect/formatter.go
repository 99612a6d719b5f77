package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mash-protocol/mash-endpoint/pkg/clusters"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes type and access information
	ShowMetadata bool

	// ShowIDs includes numeric IDs alongside names
	ShowIDs bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowIDs:      false,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display.
func (f *Formatter) FormatValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"

	case string:
		return fmt.Sprintf("%q", v)

	case []byte:
		return fmt.Sprintf("0x%x", v)

	case []uint32:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = fmt.Sprintf("0x%04X", n)
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case []clusters.BindingTarget:
		parts := make([]string, len(v))
		for i, t := range v {
			parts[i] = FormatBindingTarget(t)
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case map[string]any:
		return f.formatFields(v)

	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatFields formats command response fields sorted by name.
func (f *Formatter) formatFields(fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + f.FormatValue(fields[name])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// FormatBindingTarget formats one binding table entry.
func FormatBindingTarget(t clusters.BindingTarget) string {
	var s string
	if t.IsGroup() {
		s = fmt.Sprintf("group %d", t.Group)
	} else {
		s = fmt.Sprintf("node %016X ep %d", t.Node, t.Endpoint)
	}
	if t.Cluster != nil {
		s += " " + GetClusterName(*t.Cluster)
	}
	return s
}

// FormatFeatureMap formats a feature map bitmask.
func FormatFeatureMap(fm uint32) string {
	if fm == 0 {
		return "0x0 (none)"
	}
	return fmt.Sprintf("0x%08x", fm)
}

// AttributeRow represents a formatted attribute for display.
type AttributeRow struct {
	ID     uint32
	Name   string
	Value  string
	Type   string
	Access string
}

// AttributeRows builds display rows for a cluster's attribute values.
func (f *Formatter) AttributeRows(clusterID uint32, values map[uint32]any) []AttributeRow {
	ids := make([]uint32, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]AttributeRow, 0, len(ids))
	for _, id := range ids {
		name := GetAttributeName(clusterID, id)
		if name == "" {
			name = fmt.Sprintf("attr_0x%04X", id)
		}
		rows = append(rows, AttributeRow{ID: id, Name: name, Value: f.FormatValue(values[id])})
	}
	return rows
}

// FormatAttributeTable formats a list of attributes as a table.
func (f *Formatter) FormatAttributeTable(rows []AttributeRow) string {
	if len(rows) == 0 {
		return "  (no attributes)"
	}

	var sb strings.Builder
	for _, row := range rows {
		if f.ShowIDs {
			fmt.Fprintf(&sb, "  [0x%04X] %s: %s", row.ID, row.Name, row.Value)
		} else {
			fmt.Fprintf(&sb, "  %s: %s", row.Name, row.Value)
		}
		if f.ShowMetadata && row.Type != "" {
			fmt.Fprintf(&sb, " (%s, %s)", row.Type, row.Access)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

package config

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration files are hand written, so scalars are read loosely:
// booleans accept yes/no/on/off and 1/0, integers accept quoted digits
// and booleans.

var (
	trueStrings  = map[string]bool{"true": true, "yes": true, "1": true, "on": true}
	falseStrings = map[string]bool{"false": true, "no": true, "0": true, "off": true}
)

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// nodeBool returns nil for null. Unrecognized strings are true when
// non-empty; numbers are true when non-zero.
func nodeBool(n *yaml.Node) *bool {
	if isNull(n) || n.Kind != yaml.ScalarNode {
		if n != nil && (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) {
			v := len(n.Content) > 0
			return &v
		}
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(n.Value))
	var v bool
	switch {
	case trueStrings[s]:
		v = true
	case falseStrings[s]:
		v = false
	case n.ShortTag() == "!!int" || n.ShortTag() == "!!float":
		f, err := strconv.ParseFloat(s, 64)
		v = err != nil || f != 0
	default:
		v = n.Value != ""
	}
	return &v
}

// nodeInt returns nil for null or anything that is not an integer.
// Booleans count as 1 and 0; floats are truncated.
func nodeInt(n *yaml.Node) *int {
	if isNull(n) || n.Kind != yaml.ScalarNode {
		return nil
	}
	var v int
	switch n.ShortTag() {
	case "!!bool":
		b := nodeBool(n)
		if b == nil {
			return nil
		}
		if *b {
			v = 1
		}
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		v = int(f)
	case "!!int":
		i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
		if err != nil {
			return nil
		}
		v = int(i)
	default:
		i, err := strconv.Atoi(strings.TrimSpace(n.Value))
		if err != nil {
			return nil
		}
		v = i
	}
	return &v
}

func nodeString(n *yaml.Node) *string {
	if isNull(n) || n.Kind != yaml.ScalarNode {
		return nil
	}
	s := n.Value
	return &s
}

// nodeStrings accepts a single string or a sequence. Null items are
// skipped.
func nodeStrings(n *yaml.Node) []string {
	if isNull(n) {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			if s := nodeString(item); s != nil {
				out = append(out, *s)
			}
		}
		return out
	}
	return nil
}

func mapInt(m map[string]yaml.Node, key string) *int {
	n, ok := m[key]
	if !ok {
		return nil
	}
	return nodeInt(&n)
}

func mapString(m map[string]yaml.Node, key string) *string {
	n, ok := m[key]
	if !ok {
		return nil
	}
	return nodeString(&n)
}

func mapStrings(m map[string]yaml.Node, key string) []string {
	n, ok := m[key]
	if !ok {
		return nil
	}
	return nodeStrings(&n)
}

package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mash-protocol/mash-endpoint/internal/config"
)

// Topics builds the topics under a prefix.
//
//	topics := mqtt.Topics{Prefix: "mash"}
//	topics.NodeRequest(0x1A2B)
//	// Returns: "mash/node/0000000000001A2B/request"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return config.DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// NodeRequest returns the topic unicast requests to node are published on.
func (t Topics) NodeRequest(node uint64) string {
	return fmt.Sprintf("%s/node/%s/request", t.prefix(), FormatNodeID(node))
}

// NodeResponse returns the topic responses to node's requests are
// published on.
func (t Topics) NodeResponse(node uint64) string {
	return fmt.Sprintf("%s/node/%s/response", t.prefix(), FormatNodeID(node))
}

// NodeStatus returns the retained status topic of node.
func (t Topics) NodeStatus(node uint64) string {
	return fmt.Sprintf("%s/node/%s/status", t.prefix(), FormatNodeID(node))
}

// GroupRequest returns the topic group-addressed requests are published on.
func (t Topics) GroupRequest(group uint16) string {
	return fmt.Sprintf("%s/group/%d/request", t.prefix(), group)
}

// AllGroupRequests matches every group request topic.
func (t Topics) AllGroupRequests() string {
	return t.prefix() + "/group/+/request"
}

// ParseGroupRequest extracts the group ID from a group request topic.
func (t Topics) ParseGroupRequest(topic string) (uint16, error) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/group/")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	id, ok := strings.CutSuffix(rest, "/request")
	if !ok || id == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	g, err := strconv.ParseUint(id, 10, 16)
	if err != nil || g == 0 {
		return 0, fmt.Errorf("%w: group %q", ErrInvalidTopic, id)
	}
	return uint16(g), nil
}

// FormatNodeID formats a node ID as it appears in topics.
func FormatNodeID(node uint64) string {
	return fmt.Sprintf("%016X", node)
}

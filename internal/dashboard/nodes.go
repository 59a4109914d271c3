package dashboard

import (
	"encoding/json"
	"fmt"
)

// NodeID identifies one node of the score hierarchy
type NodeID uint8

const (
	NodeComposite NodeID = iota
	NodeEngagement
	NodeContent
	NodeAIGC
	NodeMission

	nodeCount
)

var nodeNames = [nodeCount]string{
	NodeComposite:  "composite",
	NodeEngagement: "engagement",
	NodeContent:    "content",
	NodeAIGC:       "aigc",
	NodeMission:    "mission",
}

// Nodes lists every node in render order
func Nodes() []NodeID {
	return []NodeID{NodeComposite, NodeEngagement, NodeContent, NodeAIGC, NodeMission}
}

func (n NodeID) String() string {
	if n >= nodeCount {
		return fmt.Sprintf("NodeID(%d)", n)
	}
	return nodeNames[n]
}

// Valid reports whether n is one of the five nodes
func (n NodeID) Valid() bool {
	return n < nodeCount
}

// MarshalText renders the node by name
func (n NodeID) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("invalid node id %d", n)
	}
	return []byte(n.String()), nil
}

// ParseNodeID maps a node name to its NodeID
func ParseNodeID(s string) (NodeID, error) {
	for id, name := range nodeNames {
		if name == s {
			return NodeID(id), nil
		}
	}
	return 0, fmt.Errorf("unknown node %q", s)
}

// DisclosureState holds one open/closed flag per node; the zero value has every panel closed
type DisclosureState [nodeCount]bool

// Toggle flips the flag for id and nothing else. Unknown ids are ignored.
func (s *DisclosureState) Toggle(id NodeID) {
	if !id.Valid() {
		return
	}
	s[id] = !s[id]
}

// IsOpen reports whether the panel for id is open
func (s DisclosureState) IsOpen(id NodeID) bool {
	return id.Valid() && s[id]
}

// MarshalJSON renders the state as {"composite": false, ...}
func (s DisclosureState) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, nodeCount)
	for _, id := range Nodes() {
		m[id.String()] = s[id]
	}
	return json.Marshal(m)
}

package models

// Path is an alternating sequence of nodes and relationships: len(Nodes) ==
// len(Relationships)+1, and each consecutive (node, rel, next-node) triple
// agrees with the relationship's endpoints in either direction.
type Path struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// SinglePath returns a zero-length path containing just node.
func SinglePath(node Node) Path {
	return Path{Nodes: []Node{node}}
}

func (p Path) Len() int { return len(p.Relationships) }

func (p Path) IsEmpty() bool { return len(p.Relationships) == 0 }

func (p Path) Start() Node { return p.Nodes[0] }

func (p Path) End() Node { return p.Nodes[len(p.Nodes)-1] }

// Append extends the path with a relationship and its target node.
func (p *Path) Append(rel Relationship, node Node) {
	p.Relationships = append(p.Relationships, rel)
	p.Nodes = append(p.Nodes, node)
}

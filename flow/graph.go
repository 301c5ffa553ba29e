package flow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/carebook/core"
)

// ErrUnknownNode is returned when an edge or route names an unregistered node.
var ErrUnknownNode = errors.New("unknown node")

// RouteFunc picks the next node from the state after a node ran.
type RouteFunc func(state *core.ConversationState) (NodeID, error)

type edge struct {
	route   RouteFunc
	targets []NodeID
}

// Graph is a set of nodes connected by static and conditional edges.
// Build it once with the Add methods, then call Validate; a validated graph
// is read-only and safe for concurrent use.
type Graph struct {
	nodes map[NodeID]Node
	edges map[NodeID]edge
	start edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]Node),
		edges: make(map[NodeID]edge),
	}
}

// AddNode registers n under its ID.
func (g *Graph) AddNode(n Node) error {
	id := n.ID()
	if id == "" || id == End {
		return fmt.Errorf("invalid node id %q", id)
	}

	if _, dup := g.nodes[id]; dup {
		return fmt.Errorf("duplicate node %q", id)
	}

	g.nodes[id] = n

	return nil
}

// AddEdge adds an unconditional edge.
func (g *Graph) AddEdge(from, to NodeID) {
	g.edges[from] = edge{
		route:   func(*core.ConversationState) (NodeID, error) { return to, nil },
		targets: []NodeID{to},
	}
}

// AddConditionalEdges routes from via fn. targets lists every node fn may
// return and is checked by Validate.
func (g *Graph) AddConditionalEdges(from NodeID, fn RouteFunc, targets ...NodeID) {
	g.edges[from] = edge{route: fn, targets: targets}
}

// SetEntry sets the route that picks the first node of a turn.
func (g *Graph) SetEntry(fn RouteFunc, targets ...NodeID) {
	g.start = edge{route: fn, targets: targets}
}

// Validate checks that every node has an outgoing edge and that every edge
// target is a registered node or End.
func (g *Graph) Validate() error {
	if g.start.route == nil {
		return errors.New("graph has no entry route")
	}

	check := func(from string, targets []NodeID) error {
		for _, t := range targets {
			if t == End {
				continue
			}
			if _, ok := g.nodes[t]; !ok {
				return fmt.Errorf("%w: %q (edge from %s)", ErrUnknownNode, t, from)
			}
		}
		return nil
	}

	if err := check("entry", g.start.targets); err != nil {
		return err
	}

	for _, id := range g.NodeIDs() {
		e, ok := g.edges[id]
		if !ok {
			return fmt.Errorf("node %q has no outgoing edge", id)
		}
		if err := check(string(id), e.targets); err != nil {
			return err
		}
	}

	for from := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: %q (edge source)", ErrUnknownNode, from)
		}
	}

	return nil
}

// Node returns the node registered under id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns the registered node ids, sorted.
func (g *Graph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Start returns the first node of a turn.
func (g *Graph) Start(state *core.ConversationState) (NodeID, error) {
	return g.follow("entry", g.start, state)
}

// Next returns the node following from.
func (g *Graph) Next(from NodeID, state *core.ConversationState) (NodeID, error) {
	e, ok := g.edges[from]
	if !ok {
		return "", &core.RoutingError{Node: from.String(), Reason: "no outgoing edge", Err: ErrUnknownNode}
	}
	return g.follow(from.String(), e, state)
}

func (g *Graph) follow(from string, e edge, state *core.ConversationState) (NodeID, error) {
	next, err := e.route(state)
	if err != nil {
		return "", err
	}

	for _, t := range e.targets {
		if t == next {
			return next, nil
		}
	}

	return "", &core.RoutingError{Node: from, Reason: fmt.Sprintf("route returned undeclared node %q", next), Err: ErrUnknownNode}
}

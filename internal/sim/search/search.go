// Package search runs best-first search over the movement catalog.
package search

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"voxelmotion.ai/internal/sim/geom"
	"voxelmotion.ai/internal/sim/goals"
	"voxelmotion.ai/internal/sim/movement"
	"voxelmotion.ai/internal/sim/movement/cost"
)

var (
	ErrNoPath    = errors.New("search: no path")
	ErrCancelled = errors.New("search: cancelled")
)

// checkEvery is how many expansions run between cancellation and deadline checks.
const checkEvery = 64

// MinPartialDist is how far from the start, in blocks, a partial path must end.
const MinPartialDist = 5

type Options struct {
	MaxNodes int
	Timeout  time.Duration
}

// Path is a route from Start. Positions has one more entry than Movements.
type Path struct {
	Start           geom.Pos
	Positions       []geom.Pos
	Movements       []*movement.Movement
	Goal            goals.Goal
	NodesConsidered int
	// Partial is set when the search ran out of budget and returned its best guess.
	Partial bool
}

// Dest is where the path ends.
func (p *Path) Dest() geom.Pos { return p.Positions[len(p.Positions)-1] }

// Cost sums the memoized cost of every movement.
func (p *Path) Cost() float64 {
	total := 0.0
	for _, m := range p.Movements {
		c, _ := m.CalculatedCost()
		total = cost.Add(total, c)
	}
	return total
}

func (p *Path) String() string {
	return fmt.Sprintf("path{%s->%s %d moves goal=%s}", p.Start, p.Dest(), len(p.Movements), p.Goal)
}

type node struct {
	pos    geom.Pos
	g      float64
	h      float64
	f      float64
	parent *node
	kind   movement.Kind
	index  int
}

type openSet []*node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*o = old[:len(old)-1]
	return n
}

// Search is one planning run. Its Context must not change while Run executes.
type Search struct {
	ctx   *cost.Context
	start geom.Pos
	goal  goals.Goal
	opts  Options

	cancelled atomic.Bool
}

func New(ctx *cost.Context, start geom.Pos, goal goals.Goal, opts Options) *Search {
	return &Search{ctx: ctx, start: start, goal: goal, opts: opts}
}

// Cancel asks a running search to stop. Safe from any goroutine.
func (s *Search) Cancel() { s.cancelled.Store(true) }

func (s *Search) Start() geom.Pos { return s.start }

func (s *Search) Goal() goals.Goal { return s.goal }

// Run searches until the goal is reached, the budget is spent, or ctx is done. A cancelled
// search returns ErrCancelled and never a path.
func (s *Search) Run(ctx context.Context) (*Path, error) {
	var deadline time.Time
	if s.opts.Timeout > 0 {
		deadline = time.Now().Add(s.opts.Timeout)
	}
	height := s.ctx.Height()
	nodes := map[int64]*node{}
	open := &openSet{}
	heap.Init(open)

	startNode := &node{pos: s.start, h: goals.HeuristicAt(s.goal, s.start)}
	startNode.f = startNode.h
	nodes[s.start.Key()] = startNode
	heap.Push(open, startNode)

	var best *node
	bestH := math.Inf(1)
	var res movement.MoveResult
	kinds := movement.All()
	expanded := 0

	for open.Len() > 0 {
		if expanded%checkEvery == 0 {
			if s.cancelled.Load() || ctx.Err() != nil {
				return nil, ErrCancelled
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				break
			}
		}
		if s.opts.MaxNodes > 0 && expanded >= s.opts.MaxNodes {
			break
		}
		cur := heap.Pop(open).(*node)
		expanded++
		if goals.Contains(s.goal, cur.pos) {
			return s.build(cur, expanded, false)
		}
		for _, k := range kinds {
			res.Reset()
			k.Cost(s.ctx, cur.pos.X, cur.pos.Y, cur.pos.Z, &res)
			if !res.Feasible() {
				continue
			}
			if res.Y < 0 || res.Y >= height || !s.ctx.Loaded(res.X, res.Z) {
				continue
			}
			g := cur.g + res.Cost
			p := res.Pos()
			n, seen := nodes[p.Key()]
			if seen && g >= n.g {
				continue
			}
			if !seen {
				n = &node{pos: p, h: goals.HeuristicAt(s.goal, p), index: -1}
				nodes[p.Key()] = n
			}
			n.g, n.f, n.parent, n.kind = g, g+n.h, cur, k
			if n.index >= 0 {
				heap.Fix(open, n.index)
			} else {
				heap.Push(open, n)
			}
			if n.h < bestH && n.pos.DistanceSq(s.start) >= MinPartialDist*MinPartialDist {
				best, bestH = n, n.h
			}
		}
	}
	if best == nil {
		return nil, ErrNoPath
	}
	return s.build(best, expanded, true)
}

// build turns the parent chain ending at end into movements. Each movement is evaluated
// again from its source, so its memoized cost is the one the executor starts from.
func (s *Search) build(end *node, expanded int, partial bool) (*Path, error) {
	var chain []*node
	for n := end; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	p := &Path{
		Start:           s.start,
		Positions:       make([]geom.Pos, 0, len(chain)),
		Movements:       make([]*movement.Movement, 0, len(chain)-1),
		Goal:            s.goal,
		NodesConsidered: expanded,
		Partial:         partial,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		p.Positions = append(p.Positions, n.pos)
		if n.parent == nil {
			continue
		}
		m := n.kind.Instantiate(s.ctx, n.parent.pos)
		if m.Dest != n.pos {
			return nil, fmt.Errorf("search: %s landed at %s, expected %s", m, m.Dest, n.pos)
		}
		p.Movements = append(p.Movements, m)
	}
	return p, nil
}

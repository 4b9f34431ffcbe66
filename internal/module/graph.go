package module

// graph is the declared dependency graph as an adjacency list, edges
// pointing from a module to the modules it depends on.
type graph struct {
	edges map[ID][]ID
}

func newGraph() *graph {
	return &graph{edges: make(map[ID][]ID)}
}

func (g *graph) add(from, to ID) {
	g.edges[from] = append(g.edges[from], to)
}

func (g *graph) remove(from, to ID) {
	succ := g.edges[from]
	for i, id := range succ {
		if id == to {
			g.edges[from] = append(succ[:i:i], succ[i+1:]...)
			return
		}
	}
}

// tryAdd adds from -> to unless that closes a cycle, in which case the
// graph is left unchanged and the cycle is returned.
func (g *graph) tryAdd(from, to ID) []ID {
	g.add(from, to)
	if cycle := g.findCycle(from); cycle != nil {
		g.remove(from, to)
		return cycle
	}
	return nil
}

type color uint8

const (
	white color = iota // not visited
	gray               // on the current DFS path
	black              // fully explored
)

// findCycle walks the graph depth first from start, iteratively, with the
// usual three colours. Reaching a gray node means the path closed on itself;
// the cycle is returned starting and ending with that node.
func (g *graph) findCycle(start ID) []ID {
	type frame struct {
		id   ID
		next int
	}
	colors := map[ID]color{start: gray}
	stack := []frame{{id: start}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.edges[top.id]
		if top.next == len(succ) {
			colors[top.id] = black
			stack = stack[:len(stack)-1]
			continue
		}
		n := succ[top.next]
		top.next++

		switch colors[n] {
		case gray:
			var cycle []ID
			for i := range stack {
				if stack[i].id == n {
					for _, f := range stack[i:] {
						cycle = append(cycle, f.id)
					}
					break
				}
			}
			return append(cycle, n)
		case white:
			colors[n] = gray
			stack = append(stack, frame{id: n})
		}
	}
	return nil
}

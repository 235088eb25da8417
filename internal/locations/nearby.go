package locations

import (
	"github.com/woozymasta/floorguide/internal/geo"

	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 8
	tolerance   = 0.01
)

type pinItem struct {
	entry Entry
	rect  *rtreego.Rect
}

func (p *pinItem) Bounds() *rtreego.Rect {
	return p.rect
}

// Nearby finds catalog entries close to a position on a floor image.
// One R-tree is kept per floor, keyed by the entries' percentage coordinates.
type Nearby struct {
	floors map[string]*rtreego.Rtree
}

// NewNearby indexes entries by floor.
func NewNearby(entries []Entry) *Nearby {
	floors := make(map[string]*rtreego.Rtree)
	for _, e := range entries {
		tree, ok := floors[e.Floor]
		if !ok {
			tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
			floors[e.Floor] = tree
		}
		tree.Insert(&pinItem{
			entry: e,
			rect:  rtreego.Point{e.X, e.Y}.ToRect(tolerance),
		})
	}

	return &Nearby{floors: floors}
}

// Nearest returns up to n entries on floor ordered by distance from pos.
func (n *Nearby) Nearest(floor string, pos geo.ScreenPosition, k int) []Entry {
	tree, ok := n.floors[floor]
	if !ok || k <= 0 {
		return []Entry{}
	}
	k = min(k, tree.Size())

	results := tree.NearestNeighbors(k, rtreego.Point{pos.Left, pos.Top})
	out := make([]Entry, 0, len(results))
	for _, r := range results {
		item, ok := r.(*pinItem)
		if !ok || item == nil {
			continue
		}
		out = append(out, item.entry)
	}

	return out
}

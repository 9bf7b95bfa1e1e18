package repository

import (
	"github.com/cespare/xxhash/v2"
)

// Treap-ordered leaderboard index for one collection.
//
// Ordering: rating DESC, then id ASC (deterministic). "less" means ranks
// earlier, so in-order traversal yields the leaderboard from best to worst.
// Priorities are a hash of the id, which keeps the shape independent of
// insertion order.

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating float64) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = deleteNode(n.left, id, rating)
	} else {
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// index is the ordered view of one collection's ratings.
type index struct {
	root    *node
	ratings map[string]float64
}

func newIndex() *index {
	return &index{ratings: make(map[string]float64)}
}

// set inserts id or moves it to its new position.
func (x *index) set(id string, rating float64) {
	if old, ok := x.ratings[id]; ok {
		if old == rating {
			return
		}
		x.root = deleteNode(x.root, id, old)
	}
	x.ratings[id] = rating
	x.root = insert(x.root, id, rating)
}

// rank returns the 1-based position of id.
func (x *index) rank(id string) (int, bool) {
	rating, ok := x.ratings[id]
	if !ok {
		return 0, false
	}
	pos := 0
	n := x.root
	for n != nil {
		switch {
		case n.id == id:
			return pos + nsize(n.left) + 1, true
		case less(rating, id, n.rating, n.id):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0, false
}

// top appends up to limit ids in rank order.
func (x *index) top(limit int) []string {
	out := make([]string, 0, min(limit, nsize(x.root)))
	collectTop(x.root, limit, &out)
	return out
}

func collectTop(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}

func (x *index) count() int { return nsize(x.root) }

// Package tree implements the core ordered map: a binary search tree with
// per-node reader/writer locks acquired hand-over-hand, always ancestor
// before descendant. A descent holds a node and at most one of its
// children; Remove's successor search also keeps the node being replaced
// locked, and Snapshot keeps a node's right child locked while it walks
// the left subtree.
package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/treekv/internal/treeerr"
)

// Tree is a concurrent, unbalanced binary search tree keyed by string,
// ordered by lexicographic byte comparison. The zero value is not usable;
// construct one with New.
//
// Thread-safety: every exported method may be called concurrently from
// multiple goroutines. Query and Snapshot never mutate and may run
// concurrently with each other; Insert and Remove serialize with every
// other operation that touches an overlapping path of the tree, but two
// operations on disjoint subtrees proceed independently.
type Tree struct {
	// sentinel is the non-deletable root. Its key is always "", which
	// compares less than every real key, so all real data lives in its
	// right subtree.
	sentinel *node
}

// New creates an empty Tree.
func New() *Tree {
	return &Tree{sentinel: newNode("", "")}
}

// --------------------------------------------------------------------------
// Hand-over-hand descent primitive
// --------------------------------------------------------------------------

// descend walks from the sentinel toward key, acquiring each node's lock in
// mode before releasing its parent's, so that at most a node and one child
// are ever locked at once.
//
//   - On a query descent (keepParentLocked == false) the parent is always
//     unlocked before returning; the target, if found, is returned locked
//     and the caller must unlock it.
//   - On a mutating descent (keepParentLocked == true) the parent is
//     always returned locked (the caller needs it to rewrite a child
//     link); the target, if found, is also returned locked.
func (t *Tree) descend(key string, mode lockMode, keepParentLocked bool) (parent, target *node) {
	parent = t.sentinel
	parent.lockAs(mode)

	for {
		var next *node
		if key < parent.key {
			next = parent.left
		} else {
			next = parent.right
		}

		if next == nil {
			if !keepParentLocked {
				parent.unlockAs(mode)
				parent = nil
			}
			return parent, nil
		}

		next.lockAs(mode)
		if next.key == key {
			if !keepParentLocked {
				parent.unlockAs(mode)
				parent = nil
			}
			return parent, next
		}

		parent.unlockAs(mode)
		parent = next
	}
}

// --------------------------------------------------------------------------
// Query
// --------------------------------------------------------------------------

// Query returns the value stored for key and true, or "" and false if key
// is absent. Query never mutates the tree and may run concurrently with
// any other Query or Snapshot, and with Insert/Remove on disjoint keys.
func (t *Tree) Query(key string) (string, bool) {
	_, target := t.descend(key, modeRead, false)
	if target == nil {
		return "", false
	}
	value := target.value
	target.unlockAs(modeRead)
	return value, true
}

// --------------------------------------------------------------------------
// Insert
// --------------------------------------------------------------------------

// Insert adds key/value to the tree. If key already exists, the tree is
// left unchanged and ErrAlreadyPresent is returned. Keys or values longer
// than MaxEntryLen are rejected with ErrKeyTooLong/ErrValueTooLong before
// any lock is taken.
func (t *Tree) Insert(key, value string) error {
	if len(key) > MaxEntryLen {
		return treeerr.ErrKeyTooLong
	}
	if len(value) > MaxEntryLen {
		return treeerr.ErrValueTooLong
	}

	parent, target := t.descend(key, modeWrite, true)
	if target != nil {
		target.unlockAs(modeWrite)
		parent.unlockAs(modeWrite)
		return treeerr.ErrAlreadyPresent
	}

	fresh := newNode(key, value)
	if key < parent.key {
		parent.left = fresh
	} else {
		parent.right = fresh
	}
	parent.unlockAs(modeWrite)
	return nil
}

// --------------------------------------------------------------------------
// Remove
// --------------------------------------------------------------------------

// Remove deletes key from the tree. Returns ErrNotFound if key is absent.
func (t *Tree) Remove(key string) error {
	parent, victim := t.descend(key, modeWrite, true)
	if victim == nil {
		parent.unlockAs(modeWrite)
		return treeerr.ErrNotFound
	}

	// Case A: victim has at most one child - splice it into the parent's
	// link directly.
	if victim.left == nil || victim.right == nil {
		child := victim.left
		if child == nil {
			child = victim.right
		}
		if key < parent.key {
			parent.left = child
		} else {
			parent.right = child
		}
		victim.unlockAs(modeWrite)
		parent.unlockAs(modeWrite)
		return nil
	}

	// Case B: victim has two children - replace it with its in-order
	// successor, the leftmost node of its right subtree.
	successor := victim.right
	successor.lockAs(modeWrite)
	parent.unlockAs(modeWrite)

	// linkParent.left/right (selected by fromLeft) is the link that
	// currently points to successor; it starts out as victim.right itself.
	linkParent := victim
	fromLeft := false

	for successor.left != nil {
		next := successor.left
		next.lockAs(modeWrite)
		successor.unlockAs(modeWrite)
		linkParent = successor
		fromLeft = true
		successor = next
	}

	if fromLeft {
		linkParent.left = successor.right
	} else {
		linkParent.right = successor.right
	}

	victim.key = successor.key
	victim.value = successor.value

	successor.unlockAs(modeWrite)
	victim.unlockAs(modeWrite)
	return nil
}

// --------------------------------------------------------------------------
// Snapshot
// --------------------------------------------------------------------------

// Snapshot writes a pre-order rendering of the tree to w: the sentinel
// prints as "(root)", every other node as "KEY VALUE", each line indented
// one space per depth level, and a missing child as "(null)" at the depth
// it would have occupied. The walk couples locks hand-over-hand exactly
// like descend: each non-nil child is locked while its parent is still
// locked, and the parent is only released after, so a concurrent Remove
// can never unlink a child in the gap between reading the pointer and the
// child acquiring its own lock.
func (t *Tree) Snapshot(w io.Writer) error {
	t.sentinel.lockAs(modeRead)
	return t.snapshotRecurse(t.sentinel, 0, w)
}

// snapshotRecurse prints n, which the caller has already locked in
// modeRead, then locks each non-nil child before releasing n.
func (t *Tree) snapshotRecurse(n *node, depth int, w io.Writer) error {
	indent := strings.Repeat(" ", depth)

	var line string
	if n == t.sentinel {
		line = "(root)"
	} else {
		line = n.key + " " + n.value
	}
	left, right := n.left, n.right
	if left != nil {
		left.lockAs(modeRead)
	}
	if right != nil {
		right.lockAs(modeRead)
	}
	_, err := fmt.Fprintf(w, "%s%s\n", indent, line)
	n.unlockAs(modeRead)
	if err != nil {
		return err
	}

	childIndent := strings.Repeat(" ", depth+1)

	if left == nil {
		if _, err := fmt.Fprintf(w, "%s(null)\n", childIndent); err != nil {
			return err
		}
	} else if err := t.snapshotRecurse(left, depth+1, w); err != nil {
		return err
	}

	if right == nil {
		_, err := fmt.Fprintf(w, "%s(null)\n", childIndent)
		return err
	}
	return t.snapshotRecurse(right, depth+1, w)
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

// Shutdown releases the tree. It must be called exactly once, after every
// worker that might hold a tree lock has been joined (see
// internal/controlplane's shutdown sequence) - calling it earlier can race
// with an in-flight descent.
//
// Go's garbage collector reclaims node memory once nothing references it;
// Shutdown's only job is to drop the tree's own reference to the root so
// the whole structure becomes collectible.
func (t *Tree) Shutdown() {
	t.sentinel.left = nil
	t.sentinel.right = nil
}

package tree

import (
	"testing"

	"github.com/ValentinKolb/treekv/internal/treetest"
)

func TestTreeSuite(t *testing.T) {
	treetest.RunTreeTests(t, "tree.Tree", func() treetest.Tree {
		return New()
	})
}

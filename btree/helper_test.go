package btree

import (
	"os"
	"runtime/debug"
	"testing"

	"github.com/alxdb/nvtree/consts"
	"github.com/alxdb/nvtree/region"
)

type T testing.T

func (t *T) assert(msg string, oks ...bool) {
	for _, ok := range oks {
		if !ok {
			t.Log("\n" + string(debug.Stack()))
			t.Fatal(msg)
		}
	}
}

func (t *T) assert_nil(errs ...error) {
	for _, err := range errs {
		if err != nil {
			t.Log("\n" + string(debug.Stack()))
			t.Fatal(err)
		}
	}
}

var testCfg = Config{MaxKeys: 16, MinKeys: 8, LeafCapacity: 32}

var splitCfg = Config{MaxKeys: 4, MinKeys: 2, LeafCapacity: 8}

// tmpPath returns a fresh temp file path and a func that removes it.
func (t *T) tmpPath() (string, func()) {
	f, err := os.CreateTemp("", "nvtree_test_*.db")
	t.assert_nil(err)
	path := f.Name()
	t.assert_nil(f.Close())
	return path, func() { os.Remove(path) }
}

// tree creates a fresh region+tree at a temp path. cleanup closes the
// manager and removes the backing file.
func (t *T) tree(cfg Config) (*Tree, func()) {
	path, rm := t.tmpPath()
	mgr, err := region.Create(path, 16<<20, consts.BLOCKSIZE, cfg)
	t.assert_nil(err)
	tr, err := New(mgr)
	t.assert_nil(err)
	return tr, func() {
		t.assert_nil(mgr.Close())
		rm()
	}
}

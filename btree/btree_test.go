package btree

import (
	"math/rand"
	"testing"

	"github.com/alxdb/nvtree/region"
)

// basic insert/search/erase round trip.
func TestBasic(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	t.assert_nil(tr.Insert(10, 100))
	t.assert_nil(tr.Insert(20, 200))
	t.assert_nil(tr.Insert(30, 300))

	v, ok := tr.Search(20)
	t.assert("search(20) = 200", ok, v == 200)

	ok, err := tr.Erase(20)
	t.assert_nil(err)
	t.assert("erase(20) = true", ok)

	_, ok = tr.Search(20)
	t.assert("search(20) = not found", !ok)

	v, ok = tr.Search(10)
	t.assert("search(10) = 100", ok, v == 100)
	v, ok = tr.Search(30)
	t.assert("search(30) = 300", ok, v == 300)

	ok, err = tr.Erase(20)
	t.assert_nil(err)
	t.assert("erase(20) = false", !ok)
}

// inserts that force repeated splits under a tiny config, then erase
// a contiguous range.
func TestSplits(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(splitCfg)
	defer cleanup()

	for i := int32(1); i <= 50; i++ {
		t.assert_nil(tr.Insert(i, i*10))
	}
	for i := int32(10); i <= 20; i++ {
		ok, err := tr.Erase(i)
		t.assert_nil(err)
		t.assert("erase(i) = true", ok)
	}
	for i := int32(1); i <= 50; i++ {
		v, ok := tr.Search(i)
		if i >= 10 && i <= 20 {
			t.assert("search(i) = not found", !ok)
		} else {
			t.assert("search(i) = i*10", ok, v == i*10)
		}
	}
}

// unsorted-leaf survival across an erase of a middle key.
func TestUnsortedLeafSurvival(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	order := []int32{50, 10, 30, 20, 40}
	for _, k := range order {
		t.assert_nil(tr.Insert(k, k*10))
	}
	ok, err := tr.Erase(30)
	t.assert_nil(err)
	t.assert("erase(30) = true", ok)

	for _, k := range []int32{50, 10, 20, 40} {
		v, ok := tr.Search(k)
		t.assert("still findable", ok, v == k*10)
	}
}

// crash consistency across a close/reopen cycle.
func TestCrashConsistency(x *testing.T) {
	t := (*T)(x)
	path, rm := t.tmpPath()
	defer rm()

	mgr, err := region.Create(path, 16<<20, 4096, testCfg)
	t.assert_nil(err)
	tr, err := New(mgr)
	t.assert_nil(err)
	t.assert_nil(tr.Insert(10, 100))
	t.assert_nil(tr.Insert(20, 200))
	t.assert_nil(tr.Insert(30, 300))
	ok, err := tr.Erase(20)
	t.assert_nil(err)
	t.assert("erase(20) = true", ok)
	t.assert_nil(mgr.Close())

	mgr2, integrityOK, err := region.Open(path)
	t.assert_nil(err)
	t.assert("integrity ok", integrityOK)
	defer mgr2.Close()
	tr2, err := Open(mgr2)
	t.assert_nil(err)

	v, ok := tr2.Search(10)
	t.assert("search(10) = 100", ok, v == 100)
	v, ok = tr2.Search(30)
	t.assert("search(30) = 300", ok, v == 300)
	_, ok = tr2.Search(20)
	t.assert("search(20) = not found", !ok)
}

// a larger workload - 1000 inserts, evens erased.
func TestEraseEvens(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	for i := int32(0); i < 1000; i++ {
		t.assert_nil(tr.Insert(i, i*10))
	}
	for i := int32(0); i < 1000; i += 2 {
		ok, err := tr.Erase(i)
		t.assert_nil(err)
		t.assert("erase(even) = true", ok)
	}
	t.assert("500 remaining", tr.Size() == 500)
	for i := int32(1); i < 1000; i += 2 {
		v, ok := tr.Search(i)
		t.assert("odd key survives", ok, v == i*10)
	}
}

// search-after-insert over a randomized sequence of distinct keys.
func TestSearchAfterInsert(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	const n = 300
	keys := rand.Perm(n)
	values := make(map[int32]int32, n)
	for _, k := range keys {
		key := int32(k)
		val := key * 7
		t.assert_nil(tr.Insert(key, val))
		values[key] = val
	}
	for key, val := range values {
		got, ok := tr.Search(key)
		t.assert("search-after-insert", ok, got == val)
	}
}

// erase hides a key without disturbing others, and a second erase of
// the same key is a no-op that reports false.
func TestEraseIsHidingAndDoubleErase(x *testing.T) {
	t := (*T)(x)
	tr, cleanup := t.tree(testCfg)
	defer cleanup()

	for i := int32(0); i < 64; i++ {
		t.assert_nil(tr.Insert(i, i*10))
	}
	ok, err := tr.Erase(5)
	t.assert_nil(err)
	t.assert("erase(5) = true", ok)

	_, ok = tr.Search(5)
	t.assert("search(5) = not found", !ok)
	for i := int32(0); i < 64; i++ {
		if i == 5 {
			continue
		}
		v, ok := tr.Search(i)
		t.assert("other keys unaffected", ok, v == i*10)
	}

	ok, err = tr.Erase(5)
	t.assert_nil(err)
	t.assert("double erase = false", !ok)
}

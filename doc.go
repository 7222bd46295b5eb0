/*
nvtree is a crash-consistent key-value index backed by a single
memory-mapped file, built for emulated persistent-memory semantics:
every durable write goes through an explicit flush-then-fence before
it is considered committed, and a whole-region checksum lets Open
detect a region left in a torn state by a crash.

The major components:

1. durability - the cache-line flush, store fence, and the one atomic
swap every crash-safe publication in the tree goes through.

2. region - the backing file: a superblock, an allocation bitmap, and
the block arena carved out of the rest of the mapping.

3. btree - an offset-addressed B+-tree over the region's blocks, with
unsorted-append leaves, shadow-split on overflow, lazy swap-and-shrink
erase, and a mark-sweep collector for blocks orphaned by a split.

4. slice - the unsafe slice-header casts that let a block's bytes be
viewed as a typed node without a copy.

5. errors - an error package which maintains a stack trace with every
error.
*/
package nvtree

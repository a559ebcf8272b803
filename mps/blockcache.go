package mps

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
	"github.com/fumin/dmrg/tensorfile"
)

// blockGroup is the ordered set of rank-3 environment tensors at one
// boundary, one per MPO virtual bond, the unit C3 loads and stores whole.
type blockGroup struct {
	tensors []*tensor.Dense
}

// BlockCache is the block-operator cache (C3): per-boundary left and right
// environment groups, persisted to tempPath between sweep steps, with a
// bounded in-memory window of at most two resident groups per side.
type BlockCache struct {
	tempPath string

	left     map[int]*blockGroup
	right    map[int]*blockGroup
	leftLRU  []int
	rightLRU []int
}

const windowSize = 2

// NewBlockCache creates a cache rooted at tempPath.
func NewBlockCache(tempPath string) *BlockCache {
	return &BlockCache{
		tempPath: tempPath,
		left:     map[int]*blockGroup{},
		right:    map[int]*blockGroup{},
	}
}

func (c *BlockCache) leftPath(p int) string {
	return filepath.Join(c.tempPath, fmt.Sprintf("l%d", p))
}

func (c *BlockCache) rightPath(p int) string {
	return filepath.Join(c.tempPath, fmt.Sprintf("r%d", p))
}

// ReadLeft loads L[p], from memory if resident, from tempPath otherwise.
func (c *BlockCache) ReadLeft(p int) ([]*tensor.Dense, error) {
	grp, err := c.read(p, c.left, &c.leftLRU, c.leftPath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return grp.tensors, nil
}

// ReadRight loads R[p], mirroring ReadLeft.
func (c *BlockCache) ReadRight(p int) ([]*tensor.Dense, error) {
	grp, err := c.read(p, c.right, &c.rightLRU, c.rightPath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return grp.tensors, nil
}

func (c *BlockCache) read(p int, resident map[int]*blockGroup, lru *[]int, pathFn func(int) string) (*blockGroup, error) {
	if grp, ok := resident[p]; ok {
		touch(lru, p)
		return grp, nil
	}
	fileGrp, err := tensorfile.ReadGroup(pathFn(p))
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("boundary %d", p))
	}
	grp := &blockGroup{tensors: fileGrp.Tensors}
	resident[p] = grp
	*lru = append(*lru, p)
	evictOverflow(resident, lru, pathFn)
	return grp, nil
}

// WriteLeft serializes L[p], overwriting any prior contents, and keeps it
// resident.
func (c *BlockCache) WriteLeft(p int, grp []*tensor.Dense) error {
	return c.write(p, grp, c.left, &c.leftLRU, c.leftPath)
}

// WriteRight serializes R[p], mirroring WriteLeft.
func (c *BlockCache) WriteRight(p int, grp []*tensor.Dense) error {
	return c.write(p, grp, c.right, &c.rightLRU, c.rightPath)
}

func (c *BlockCache) write(p int, tensors []*tensor.Dense, resident map[int]*blockGroup, lru *[]int, pathFn func(int) string) error {
	if err := tensorfile.WriteGroup(pathFn(p), &tensorfile.Group{Tensors: tensors}); err != nil {
		return errors.Wrap(err, fmt.Sprintf("boundary %d", p))
	}
	resident[p] = &blockGroup{tensors: tensors}
	touch(lru, p)
	evictOverflow(resident, lru, pathFn)
	return nil
}

// ReadAndRemoveLeft reads L[p] then unlinks it from tempPath.
func (c *BlockCache) ReadAndRemoveLeft(p int) ([]*tensor.Dense, error) {
	grp, err := c.ReadLeft(p)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	delete(c.left, p)
	removeLRU(&c.leftLRU, p)
	if err := tensorfile.RemoveGroup(c.leftPath(p)); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return grp, nil
}

// ReadAndRemoveRight reads R[p] then unlinks it from tempPath.
func (c *BlockCache) ReadAndRemoveRight(p int) ([]*tensor.Dense, error) {
	grp, err := c.ReadRight(p)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	delete(c.right, p)
	removeLRU(&c.rightLRU, p)
	if err := tensorfile.RemoveGroup(c.rightPath(p)); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return grp, nil
}

func touch(lru *[]int, p int) {
	removeLRU(lru, p)
	*lru = append(*lru, p)
}

func removeLRU(lru *[]int, p int) {
	for i, v := range *lru {
		if v == p {
			*lru = append((*lru)[:i], (*lru)[i+1:]...)
			return
		}
	}
}

// trivialGroup returns the open-boundary environment: n slots, each a 1x1
// identity tensor, used to seed L[0] and R[0] before any site is absorbed.
func trivialGroup(n int) []*tensor.Dense {
	g := make([]*tensor.Dense, n)
	for i := range g {
		t := tensor.Zeros(1, 1)
		t.SetAt([]int{0, 0}, 1)
		g[i] = t
	}
	return g
}

// evictOverflow writes out and drops from memory every group beyond the
// windowSize most recently touched.
func evictOverflow(resident map[int]*blockGroup, lru *[]int, pathFn func(int) string) {
	for len(*lru) > windowSize {
		p := (*lru)[0]
		*lru = (*lru)[1:]
		grp, ok := resident[p]
		if !ok {
			continue
		}
		if err := tensorfile.WriteGroup(pathFn(p), &tensorfile.Group{Tensors: grp.tensors}); err != nil {
			panic(fmt.Sprintf("%+v", errors.Wrap(err, fmt.Sprintf("evict boundary %d", p))))
		}
		delete(resident, p)
	}
}

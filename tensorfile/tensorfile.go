// Package tensorfile persists tensor.Dense values to single SQLite files,
// one file per tensor, generalizing an (i,j,re,im) dense-matrix encoding to
// tensors of arbitrary rank via a flattened row-major index. A
// block-operator group is not stored in one file: it is written as one
// such SQLite file per member tensor plus a text file holding the count.
package tensorfile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
)

const (
	tableShape = "shape"
	tableElem  = "elem"
	queryTO    = 48 * time.Hour
)

// Write serializes t to a fresh SQLite file at path, overwriting any
// existing file.
func Write(path string, t *tensor.Dense) error {
	os.Remove(path)
	db, err := newDB(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTO)
	defer cancel()
	if err := writeShape(ctx, db, t); err != nil {
		return errors.Wrap(err, "")
	}
	idx := 0
	for ijk := range t.All() {
		v := t.At(ijk...)
		if v == 0 {
			idx++
			continue
		}
		if err := setElem(ctx, db, idx, v); err != nil {
			return errors.Wrap(err, "")
		}
		idx++
	}
	return nil
}

// Read deserializes the tensor stored at path.
func Read(path string) (*tensor.Dense, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryTO)
	defer cancel()
	shape, div, err := readShape(ctx, db)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	t := tensor.Zeros(shape...)
	t.SetDiv(div)

	sqlStr := fmt.Sprintf(`SELECT idx, re, im FROM %s`, tableElem)
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	for rows.Next() {
		var idx int
		var re, im float32
		if err := rows.Scan(&idx, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		ijk := make([]int, len(shape))
		rem := idx
		for i, st := range strides {
			ijk[i] = rem / st
			rem = rem % st
		}
		t.SetAt(ijk, complex(re, im))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return t, nil
}

// Remove deletes the file at path if present. Missing files are not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "")
	}
	return nil
}

// Exists reports whether a tensor file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, sqlStr := range []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableShape),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableElem),
		fmt.Sprintf(`CREATE TABLE %s (axis INTEGER, dim INTEGER, div INTEGER, PRIMARY KEY (axis)) STRICT`, tableShape),
		fmt.Sprintf(`CREATE TABLE %s (idx INTEGER, re REAL, im REAL, PRIMARY KEY (idx)) STRICT`, tableElem),
	} {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func writeShape(ctx context.Context, db *sql.DB, t *tensor.Dense) error {
	shape := t.Shape()
	sqlStr := fmt.Sprintf(`INSERT INTO %s (axis, dim, div) VALUES (?, ?, ?)`, tableShape)
	for i, d := range shape {
		div := 0
		if i == 0 {
			div = t.Div()
		}
		if _, err := db.ExecContext(ctx, sqlStr, i, d, div); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if len(shape) == 0 {
		if _, err := db.ExecContext(ctx, sqlStr, 0, 0, t.Div()); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func readShape(ctx context.Context, db *sql.DB) (shape []int, div int, err error) {
	sqlStr := fmt.Sprintf(`SELECT axis, dim, div FROM %s ORDER BY axis`, tableShape)
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, 0, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var axis, dim, d int
		if err := rows.Scan(&axis, &dim, &d); err != nil {
			return nil, 0, errors.Wrap(err, "")
		}
		shape = append(shape, dim)
		if axis == 0 {
			div = d
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "")
	}
	return shape, div, nil
}

func setElem(ctx context.Context, db *sql.DB, idx int, v complex64) error {
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (idx, re, im) VALUES (?, ?, ?)`, tableElem)
	if _, err := db.ExecContext(ctx, sqlStr, idx, real(v), imag(v)); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s idx=%d", sqlStr, idx))
	}
	return nil
}

// Group is an ordered set of tensors sharing one block-operator boundary,
// the on-disk unit C3 loads and stores as a whole.
type Group struct {
	Tensors []*tensor.Dense
}

// WriteGroup serializes grp to a directory of per-index tensor files named
// basePath + "_<n>.db".
func WriteGroup(basePath string, grp *Group) error {
	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return errors.Wrap(err, "")
	}
	for i, t := range grp.Tensors {
		if err := Write(indexPath(basePath, i), t); err != nil {
			return errors.Wrap(err, fmt.Sprintf("tensor %d", i))
		}
	}
	if err := os.WriteFile(basePath+".count", []byte(fmt.Sprintf("%d", len(grp.Tensors))), 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// ReadGroup deserializes the group at basePath.
func ReadGroup(basePath string) (*Group, error) {
	countBytes, err := os.ReadFile(basePath + ".count")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	var n int
	if _, err := fmt.Sscanf(string(countBytes), "%d", &n); err != nil {
		return nil, errors.Wrap(err, "")
	}
	grp := &Group{Tensors: make([]*tensor.Dense, n)}
	for i := 0; i < n; i++ {
		t, err := Read(indexPath(basePath, i))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("tensor %d", i))
		}
		grp.Tensors[i] = t
	}
	return grp, nil
}

// RemoveGroup deletes every file belonging to the group at basePath.
func RemoveGroup(basePath string) error {
	countPath := basePath + ".count"
	countBytes, err := os.ReadFile(countPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "")
	}
	var n int
	if _, err := fmt.Sscanf(string(countBytes), "%d", &n); err != nil {
		return errors.Wrap(err, "")
	}
	for i := 0; i < n; i++ {
		if err := Remove(indexPath(basePath, i)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("tensor %d", i))
		}
	}
	return os.Remove(countPath)
}

// GroupExists reports whether a group is present at basePath.
func GroupExists(basePath string) bool {
	_, err := os.Stat(basePath + ".count")
	return err == nil
}

func indexPath(basePath string, i int) string {
	return fmt.Sprintf("%s_%d.db", basePath, i)
}

// Package history records the per-generation state of an optimization run
// into sql tables for later inspection.  Recorded runs are never read back
// by the optimizer.
package history

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rwcarlsen/fabso"
	"github.com/rwcarlsen/fabso/fdr"
	"gonum.org/v1/gonum/mat"
)

const (
	// TblParticles holds every particle's position and fitness for each
	// generation.
	TblParticles = "fabsoparticles"
	// TblParticlesBest holds every particle's personal best for each
	// generation.
	TblParticlesBest = "fabsoparticlesbest"
	// TblArchive holds the archive entries for each generation.
	TblArchive = "fabsoarchive"
	// TblBest holds the global best and inertia for each generation.
	TblBest = "fabsobest"
)

// Recorder implements fdr.Observer.
type Recorder struct {
	db    *sql.DB
	ndims int
}

// Open opens (or creates) a sqlite database at path and prepares it for
// recording a run in ndims dimensions.
func Open(path string, ndims int) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	r, err := New(db, ndims)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New prepares db for recording a run in ndims dimensions.  The tables are
// created if they do not already exist.
func New(db *sql.DB, ndims int) (*Recorder, error) {
	r := &Recorder{db: db, ndims: ndims}
	if err := r.initdb(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return r, nil
}

func (r *Recorder) DB() *sql.DB { return r.db }

func (r *Recorder) Close() error { return r.db.Close() }

func (r *Recorder) initdb() error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (particle INTEGER, iter INTEGER, val REAL" + r.xdbsql("define") + r.vdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (particle INTEGER, iter INTEGER, best REAL" + r.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblArchive + " (entry INTEGER, iter INTEGER, val REAL" + r.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (iter INTEGER, val REAL, inertia REAL, evals INTEGER, replaced INTEGER, restarted INTEGER" + r.xdbsql("define") + ");",
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) xdbsql(op string) string { return r.colsql("x", op) }

func (r *Recorder) vdbsql(op string) string { return r.colsql("v", op) }

func (r *Recorder) colsql(prefix, op string) string {
	var b strings.Builder
	for i := 0; i < r.ndims; i++ {
		switch op {
		case "?":
			b.WriteString(",?")
		case "define":
			fmt.Fprintf(&b, ",%v%v REAL", prefix, i)
		case "x":
			fmt.Fprintf(&b, ",%v%v", prefix, i)
		default:
			panic("invalid db op " + op)
		}
	}
	return b.String()
}

func pos2iface(pos []float64) []interface{} {
	iface := make([]interface{}, 0, len(pos))
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

// Generation writes g to the database in a single transaction.
func (r *Recorder) Generation(g fdr.Generation) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	s0 := "INSERT INTO " + TblParticles + " (particle,iter,val" + r.xdbsql("x") + r.vdbsql("x") + ") VALUES (?,?,?" + r.xdbsql("?") + r.vdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (particle,iter,best" + r.xdbsql("x") + ") VALUES (?,?,?" + r.xdbsql("?") + ");"
	if err := r.checkPositions(g.Positions, len(g.Particles)); err != nil {
		return err
	}
	for i, p := range g.Particles {
		if err := r.checkDims(p.Len()); err != nil {
			return err
		}
		args := []interface{}{p.Id, g.Iter, p.Val}
		if r.ndims > 0 {
			args = append(args, pos2iface(g.Positions.RawRowView(i))...)
		}
		args = append(args, pos2iface(p.Vel)...)
		if _, err := tx.Exec(s0, args...); err != nil {
			return err
		}

		args = []interface{}{p.Id, g.Iter, p.Best.Val}
		args = append(args, pos2iface(p.Best.Pos())...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return err
		}
	}

	s2 := "INSERT INTO " + TblArchive + " (entry,iter,val" + r.xdbsql("x") + ") VALUES (?,?,?" + r.xdbsql("?") + ");"
	for i, e := range g.Archive {
		args := []interface{}{i, g.Iter, e.Val}
		args = append(args, pos2iface(e.Pos())...)
		if _, err := tx.Exec(s2, args...); err != nil {
			return err
		}
	}

	return r.insertBest(tx, g)
}

func (r *Recorder) insertBest(tx *sql.Tx, g fdr.Generation) error {
	best := g.Best
	if best.Len() != r.ndims {
		// an empty swarm has no best position
		best = fabso.NewPoint(make([]float64, r.ndims), best.Val)
	}

	s := "INSERT INTO " + TblBest + " (iter,val,inertia,evals,replaced,restarted" + r.xdbsql("x") + ") VALUES (?,?,?,?,?,?" + r.xdbsql("?") + ");"
	args := []interface{}{g.Iter, best.Val, g.Inertia, g.Evals, g.Replaced, g.Restarted}
	args = append(args, pos2iface(best.Pos())...)
	_, err := tx.Exec(s, args...)
	return err
}

func (r *Recorder) checkPositions(m *mat.Dense, n int) error {
	if n == 0 || r.ndims == 0 {
		return nil
	} else if m == nil {
		return fmt.Errorf("%w: generation has no position matrix", fabso.ErrValidation)
	}
	if rows, cols := m.Dims(); rows != n || cols != r.ndims {
		return fmt.Errorf("%w: position matrix is %vx%v, want %vx%v", fabso.ErrValidation, rows, cols, n, r.ndims)
	}
	return nil
}

func (r *Recorder) checkDims(n int) error {
	if n != r.ndims {
		return fmt.Errorf("%w: recorder has %v dimensions, particle has %v", fabso.ErrValidation, r.ndims, n)
	}
	return nil
}

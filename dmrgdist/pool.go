// Package dmrgdist is the local realization of the distributed two-site
// matvec variant: a bounded-queue coordinator fans term-wise contractions
// out to a pool of goroutine workers and sums the partial results. Workers
// are stateless between jobs except for a per-bond-local cache keyed on
// each term's own identity, invalidated whenever the coordinator calls
// NewBond.
package dmrgdist

import (
	"context"
	"sync"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

type job struct {
	gen    uint64
	term   mps.Term
	state  *tensor.Dense
	result chan<- *tensor.Dense
}

// Pool is a fixed-size worker pool dedicated to one executor's term-wise
// matvec fan-out. The coordinator's own control flow stays sequential: a
// call to Matvec blocks until every term's partial contraction has
// returned, matching the ordering guarantee that no bond update may
// overlap another.
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu  sync.Mutex
	gen uint64
}

// New starts n worker goroutines pulling from a job queue of depth
// queueDepth.
func New(n, queueDepth int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{jobs: make(chan job, queueDepth), cancel: cancel}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(ctx)
	}
	return p
}

// NewBond signals every worker that the current bond has changed: any
// partial result a worker cached for the previous bond's terms is no
// longer valid and must be recomputed.
func (p *Pool) NewBond() {
	p.mu.Lock()
	p.gen++
	p.mu.Unlock()
}

func (p *Pool) currentGen() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Matvec applies the sum of all terms' matvec contractions to state,
// dispatching one job per term and summing partial results as they
// return.
func (p *Pool) Matvec(terms []mps.Term, state *tensor.Dense) *tensor.Dense {
	gen := p.currentGen()
	results := make(chan *tensor.Dense, len(terms))
	for _, t := range terms {
		p.jobs <- job{gen: gen, term: t, state: state, result: results}
	}
	out := tensor.Zeros(state.Shape()...)
	for range terms {
		out.Add(1, <-results)
	}
	return out
}

// Close stops all workers and releases the queue. The coordinator must
// call it once no more bonds remain.
func (p *Pool) Close() {
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
}

// termKey identifies a term's contraction result: the four tensors that
// make up the term, plus the state it was applied to, since the same term
// recurs against a different state on every Lanczos iteration within a
// bond.
type termKey struct {
	l, wl, wr, r, state *tensor.Dense
}

func keyOf(term mps.Term, state *tensor.Dense) termKey {
	return termKey{l: term.L, wl: term.Wl, wr: term.Wr, r: term.R, state: state}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	var cacheGen uint64
	var cache map[termKey]*tensor.Dense

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			if j.gen != cacheGen {
				cache = nil
				cacheGen = j.gen
			}
			if cache == nil {
				cache = make(map[termKey]*tensor.Dense)
			}
			key := keyOf(j.term, j.state)
			if cached, ok := cache[key]; ok {
				j.result <- cached
				continue
			}
			out := contractTerm(j.term, j.state)
			cache[key] = out
			j.result <- out
		}
	}
}

// contractTerm applies one term's four-step matvec contraction, mirroring
// mps.AssembleTerms's term convention but operating on a single term so it
// can run standalone in a worker goroutine.
func contractTerm(term mps.Term, state *tensor.Dense) *tensor.Dense {
	t0 := tensor.Contract(term.L, state, []int{0}, []int{0})
	t1 := tensor.Contract(t0, term.Wl, []int{1}, []int{1}).Transpose(0, 3, 1, 2)
	t2 := tensor.Contract(t1, term.Wr, []int{2}, []int{1}).Transpose(0, 1, 3, 2)
	return tensor.Contract(t2, term.R, []int{3}, []int{0})
}

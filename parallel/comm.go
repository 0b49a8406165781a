package parallel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

var ErrCommTimeout = errors.New("parallel: receive timed out")

// Tags below zero are reserved for collectives.
const (
	tagReduce = -1 - iota
	tagBroadcast
)

// mailDepth bounds the messages in flight on one (from, to, tag) route
// before Send blocks. Exchanges that alternate send and receive never have
// more than two outstanding.
const mailDepth = 4

type route struct {
	from, to, tag int
}

// Comm is a world of NP ranks, each run on its own goroutine, exchanging
// byte messages over buffered channels. Messages on one route are delivered
// in the order sent.
type Comm struct {
	NP      int
	timeout time.Duration
	mu      sync.Mutex
	boxes   map[route]chan []byte
}

type Option func(c *Comm)

// WithTimeout converts a receive that waits longer than d into a fatal
// error. It is a debugging aid for unmatched exchanges, zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *Comm) { c.timeout = d }
}

func NewComm(NP int, opts ...Option) (c *Comm) {
	if NP < 1 {
		panic(fmt.Errorf("parallel: invalid number of ranks %d", NP))
	}
	c = &Comm{
		NP:    NP,
		boxes: make(map[route]chan []byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return
}

func (c *Comm) box(from, to, tag int) chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := route{from, to, tag}
	mb, ok := c.boxes[key]
	if !ok {
		mb = make(chan []byte, mailDepth)
		c.boxes[key] = mb
	}
	return mb
}

// Proc returns the handle of one rank.
func (c *Comm) Proc(rank int) *Proc {
	if rank < 0 || rank >= c.NP {
		panic(fmt.Errorf("parallel: rank %d out of range [0,%d)", rank, c.NP))
	}
	return &Proc{comm: c, rank: rank}
}

// Run executes f on every rank concurrently and returns when all ranks have
// returned.
func (c *Comm) Run(f func(p *Proc)) {
	var wg sync.WaitGroup
	wg.Add(c.NP)
	for rank := 0; rank < c.NP; rank++ {
		go func(p *Proc) {
			defer wg.Done()
			f(p)
		}(c.Proc(rank))
	}
	wg.Wait()
}

// Proc is the view of the world from one rank.
type Proc struct {
	comm *Comm
	rank int
}

func (p *Proc) Rank() int   { return p.rank }
func (p *Proc) NProcs() int { return p.comm.NP }

// Send posts msg to rank to. It does not wait for the receiver; msg must not
// be modified afterwards.
func (p *Proc) Send(to, tag int, msg []byte) {
	if to < 0 || to >= p.comm.NP {
		panic(fmt.Errorf("parallel: rank %d sending to rank %d out of range [0,%d)", p.rank, to, p.comm.NP))
	}
	p.comm.box(p.rank, to, tag) <- msg
}

// Receive blocks until the next message from rank from with tag arrives.
func (p *Proc) Receive(from, tag int) (msg []byte) {
	mb := p.comm.box(from, p.rank, tag)
	if p.comm.timeout <= 0 {
		return <-mb
	}
	timer := time.NewTimer(p.comm.timeout)
	defer timer.Stop()
	select {
	case msg = <-mb:
		return
	case <-timer.C:
		err := fmt.Errorf("%w: rank %d waiting on rank %d tag %d after %v",
			ErrCommTimeout, p.rank, from, tag, p.comm.timeout)
		jww.ERROR.Println(err)
		panic(err)
	}
}

// Sum adds v over all ranks. Contributions are added in rank order so every
// rank gets a bit-identical result.
func (p *Proc) Sum(v float64) (sum float64) {
	if p.comm.NP == 1 {
		return v
	}
	if p.rank != 0 {
		p.Send(0, tagReduce, EncodeFloat64s([]float64{v}))
		return DecodeFloat64s(p.Receive(0, tagBroadcast))[0]
	}
	sum = v
	for rank := 1; rank < p.comm.NP; rank++ {
		sum += DecodeFloat64s(p.Receive(rank, tagReduce))[0]
	}
	msg := EncodeFloat64s([]float64{sum})
	for rank := 1; rank < p.comm.NP; rank++ {
		p.Send(rank, tagBroadcast, msg)
	}
	return
}

// Barrier returns once every rank has entered it.
func (p *Proc) Barrier() {
	p.Sum(0)
}

// EncodeFloat64s packs values little endian, eight bytes each.
func EncodeFloat64s(vals []float64) (buf []byte) {
	buf = make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return
}

func DecodeFloat64s(buf []byte) (vals []float64) {
	vals = make([]float64, len(buf)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return
}

// EncodeFloat32s packs values little endian, four bytes each.
func EncodeFloat32s(vals []float32) (buf []byte) {
	buf = make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return
}

func DecodeFloat32s(buf []byte) (vals []float32) {
	vals = make([]float32, len(buf)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return
}

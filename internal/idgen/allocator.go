// Package idgen allocates bit-packed, roughly time-ordered identifiers
// without coordination between processes.
//
// A packed identifier is, from the most significant bit down:
//
//	40 bits  wall clock milliseconds >> 6
//	24 bits  machine id
//	16 bits  process id
//	24 bits  rolling counter
//
// Uniqueness holds while the counter wraps at most once per 64ms window on a
// given machine and process.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	TimestampShift = 6
	TimestampBits  = 40
	MachineBits    = 24
	ProcessBits    = 16
	CounterBits    = 24
	TotalBits      = TimestampBits + MachineBits + ProcessBits + CounterBits

	timestampMask = 1<<TimestampBits - 1
	machineMask   = 1<<MachineBits - 1
	processMask   = 1<<ProcessBits - 1
	counterMask   = 1<<CounterBits - 1
)

// Base36Width is the fixed length of NextBase36 output.
var Base36Width = len(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), TotalBits), big.NewInt(1)).Text(36))

// Options replaces the allocator's sources. Zero values select the defaults.
type Options struct {
	Clock     func() time.Time
	MachineID func() (uint32, error)
	ProcessID func() (uint32, error)
	// Entropy feeds random fallbacks, the counter start and sortable ids.
	Entropy io.Reader
	Logger  *zerolog.Logger
}

// Allocator is safe for concurrent use. Construct one per process and pass it
// to whatever needs identifiers.
type Allocator struct {
	clock   func() time.Time
	machine uint32
	process uint32
	counter atomic.Uint32

	ulidMu      sync.Mutex
	ulidEntropy *ulid.MonotonicEntropy
}

func New(opts Options) *Allocator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MachineID == nil {
		opts.MachineID = HardwareMachineID
	}
	if opts.ProcessID == nil {
		opts.ProcessID = RuntimeProcessID
	}
	if opts.Entropy == nil {
		opts.Entropy = rand.Reader
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}

	a := &Allocator{
		clock:       opts.Clock,
		ulidEntropy: ulid.Monotonic(opts.Entropy, 0),
	}

	machine, err := opts.MachineID()
	if err != nil {
		machine = randomUint32(opts.Entropy)
		logger.Warn().Err(err).Uint32("machine_id", machine&machineMask).Msg("Machine fingerprint unavailable, using random machine id")
	}
	process, err := opts.ProcessID()
	if err != nil {
		process = randomUint32(opts.Entropy)
		logger.Warn().Err(err).Uint32("process_id", process&processMask).Msg("Process id unavailable, using random process id")
	}
	a.machine = machine & machineMask
	a.process = process & processMask
	a.counter.Store(randomUint32(opts.Entropy) & counterMask)
	return a
}

// MachineID returns the masked machine id packed into identifiers.
func (a *Allocator) MachineID() uint32 { return a.machine }

// ProcessID returns the masked process id packed into identifiers.
func (a *Allocator) ProcessID() uint32 { return a.process }

// NextBig returns a new packed identifier.
func (a *Allocator) NextBig() *big.Int {
	ctr := a.counter.Add(1) & counterMask
	ts := uint64(a.clock().UnixMilli()) >> TimestampShift
	return Compose(Parts{Timestamp: ts, Machine: a.machine, Process: a.process, Counter: ctr})
}

// NextBase36 returns a new packed identifier as a zero-padded base-36 string
// of Base36Width characters.
func (a *Allocator) NextBase36() string {
	s := a.NextBig().Text(36)
	if len(s) < Base36Width {
		s = strings.Repeat("0", Base36Width-len(s)) + s
	}
	return s
}

// NextHex returns 32 lowercase hex characters of a random UUID. It does not
// use the packed layout.
func (a *Allocator) NextHex() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NextSortable returns a ULID stamped with the allocator clock. Identifiers
// from one allocator sort in allocation order. It fails with
// ulid.ErrMonotonicOverflow once a millisecond's entropy is exhausted.
func (a *Allocator) NextSortable() (string, error) {
	a.ulidMu.Lock()
	defer a.ulidMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(a.clock()), a.ulidEntropy)
	if err != nil {
		return "", fmt.Errorf("sortable id: %w", err)
	}
	return id.String(), nil
}

// Parts are the fields of a packed identifier.
type Parts struct {
	Timestamp uint64 // truncated milliseconds
	Machine   uint32
	Process   uint32
	Counter   uint32
}

// Compose packs p, masking each field to its width.
func Compose(p Parts) *big.Int {
	low := uint64(p.Machine&machineMask)<<(ProcessBits+CounterBits) |
		uint64(p.Process&processMask)<<CounterBits |
		uint64(p.Counter&counterMask)
	v := new(big.Int).SetUint64(p.Timestamp & timestampMask)
	v.Lsh(v, MachineBits+ProcessBits+CounterBits)
	return v.Or(v, new(big.Int).SetUint64(low))
}

// Decompose is the inverse of Compose.
func Decompose(v *big.Int) Parts {
	low := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0))).Uint64()
	return Parts{
		Timestamp: new(big.Int).Rsh(v, MachineBits+ProcessBits+CounterBits).Uint64(),
		Machine:   uint32(low>>(ProcessBits+CounterBits)) & machineMask,
		Process:   uint32(low>>CounterBits) & processMask,
		Counter:   uint32(low) & counterMask,
	}
}

// Time returns the start of the 64ms window p was allocated in.
func (p Parts) Time() time.Time {
	return time.UnixMilli(int64(p.Timestamp << TimestampShift))
}

func randomUint32(r io.Reader) uint32 {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(b[:])
}

// Package idgen allocates process-local unique int64 ids without a central
// coordinator.
package idgen

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

// Generator hands out unique ids.
type Generator interface {
	Generate() int64
}

const (
	counterSpan   = 10000
	suffixSpan    = 10000
	defaultSuffix = 1234
)

// Sequence builds ids as <unix seconds><4-digit counter><4-digit host suffix>.
// Ids are non-decreasing for sequential calls and unique as long as fewer than
// 10000 ids are drawn within one second.
type Sequence struct {
	mu      sync.Mutex
	counter int64
	suffix  int64
	now     func() time.Time
}

// NewSequence creates a Sequence with the given host suffix (0..9999).
func NewSequence(suffix int64) *Sequence {
	return &Sequence{
		suffix: suffix % suffixSpan,
		now:    time.Now,
	}
}

// NewHostSequence creates a Sequence whose suffix comes from the hostname.
func NewHostSequence() *Sequence {
	hostname, _ := os.Hostname()
	return NewSequence(HostSuffix(hostname))
}

// Generate returns the next id.
func (s *Sequence) Generate() int64 {
	s.mu.Lock()
	n := s.counter % counterSpan
	s.counter++
	s.mu.Unlock()

	return s.now().Unix()*counterSpan*suffixSpan + n*suffixSpan + s.suffix
}

// HostSuffix takes the first four digits found in hostname. Hosts without
// digits get 1234.
func HostSuffix(hostname string) int64 {
	var digits strings.Builder
	for _, r := range hostname {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 4 {
				break
			}
		}
	}
	if digits.Len() == 0 {
		return defaultSuffix
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return defaultSuffix
	}
	return v
}

// Snowflake wraps a bwmarrin/snowflake node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for node (0..1023).
func NewSnowflake(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create snowflake node %d", node)
	}
	return &Snowflake{node: n}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

// New builds the generator named by strategy: "sequence" (default) or
// "snowflake". A negative node derives one from the hostname.
func New(strategy string, node int64) (Generator, error) {
	switch strategy {
	case "", "sequence":
		if node >= 0 {
			return NewSequence(node), nil
		}
		return NewHostSequence(), nil
	case "snowflake":
		if node < 0 {
			hostname, _ := os.Hostname()
			node = HostSuffix(hostname) % 1024
		}
		return NewSnowflake(node)
	default:
		return nil, errors.Errorf("unknown id strategy %q", strategy)
	}
}

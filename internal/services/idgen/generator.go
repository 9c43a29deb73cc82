// Package idgen produces invoice identifiers of the form AB1234.
package idgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
)

const (
	letters      = 26
	numbers      = 10000
	KeyspaceSize = letters * letters * numbers

	DefaultMaxRandomAttempts = 64
)

var (
	ErrKeyspaceExhausted = errors.New("idgen: no free invoice id left")

	pattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{4}$`)
)

// ExistsFunc reports whether id is already taken.
type ExistsFunc func(id string) (bool, error)

type Generator struct {
	mu          sync.Mutex // guards rnd
	rnd         *rand.Rand
	maxAttempts int
}

func New(maxAttempts int) *Generator {
	return NewWithRand(maxAttempts, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewWithRand lets tests pin the random source.
func NewWithRand(maxAttempts int, rnd *rand.Rand) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxRandomAttempts
	}
	return &Generator{rnd: rnd, maxAttempts: maxAttempts}
}

// Valid reports whether id has the invoice id shape.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// Format maps n in [0, KeyspaceSize) onto an id; two letters select n / 10000.
func Format(n int) string {
	prefix := n / numbers
	return fmt.Sprintf("%c%c%04d", 'A'+prefix/letters, 'A'+prefix%letters, n%numbers)
}

// Next draws random ids until one is free. After maxAttempts collisions it
// walks the keyspace from a random offset and returns the first free id.
func (g *Generator) Next(exists ExistsFunc) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		id := Format(g.intN(KeyspaceSize))
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}

	start := g.intN(KeyspaceSize)
	for i := 0; i < KeyspaceSize; i++ {
		id := Format((start + i) % KeyspaceSize)
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrKeyspaceExhausted
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.IntN(n)
}

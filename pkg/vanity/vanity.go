// Package vanity searches for mint keypairs whose base58 address carries a
// chosen prefix or suffix.
package vanity

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Result represents a vanity address search result.
type Result struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	Attempts   uint64
	Duration   time.Duration
}

// Options configures vanity address generation.
type Options struct {
	Prefix          string        // Required prefix
	Suffix          string        // Required suffix
	Workers         int           // Parallel workers (default: NumCPU)
	Timeout         time.Duration // Max search time (0 = bounded by ctx only)
	CaseInsensitive bool
}

// Validate rejects patterns that can never match a base58 address.
func (o Options) Validate() error {
	if o.Prefix == "" && o.Suffix == "" {
		return fmt.Errorf("prefix or suffix is required")
	}
	if len(o.Prefix)+len(o.Suffix) > 44 {
		return fmt.Errorf("pattern longer than a base58 address")
	}
	for _, part := range []struct{ name, value string }{{"prefix", o.Prefix}, {"suffix", o.Suffix}} {
		for _, r := range part.value {
			if !validRune(r, o.CaseInsensitive) {
				return fmt.Errorf("%s contains %q which is not in the base58 alphabet", part.name, r)
			}
		}
	}
	return nil
}

func validRune(r rune, caseInsensitive bool) bool {
	if isBase58(r) {
		return true
	}
	if !caseInsensitive {
		return false
	}
	return isBase58(unicode.ToUpper(r)) || isBase58(unicode.ToLower(r))
}

func isBase58(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	_, err := base58.Decode(string(r))
	return err == nil
}

type matcher struct {
	prefix, suffix string
	fold           bool
}

func newMatcher(o Options) matcher {
	m := matcher{prefix: o.Prefix, suffix: o.Suffix, fold: o.CaseInsensitive}
	if m.fold {
		m.prefix = strings.ToLower(m.prefix)
		m.suffix = strings.ToLower(m.suffix)
	}
	return m
}

func (m matcher) match(addr string) bool {
	if m.fold {
		addr = strings.ToLower(addr)
	}
	return strings.HasPrefix(addr, m.prefix) && strings.HasSuffix(addr, m.suffix)
}

// Generate searches for a keypair matching the configured pattern.
//
//	result, err := vanity.Generate(ctx, vanity.Options{Prefix: "SHM"})
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	m := newMatcher(opts)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Timeout > 0 {
		searchCtx, cancel = context.WithTimeout(searchCtx, opts.Timeout)
		defer cancel()
	}

	var (
		attempts atomic.Uint64
		once     sync.Once
		result   *Result
		wg       sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for searchCtx.Err() == nil {
				key, err := solana.NewRandomPrivateKey()
				if err != nil {
					continue
				}
				n := attempts.Add(1)
				pub := key.PublicKey()
				if !m.match(pub.String()) {
					continue
				}
				once.Do(func() {
					result = &Result{
						PrivateKey: key,
						PublicKey:  pub,
						Attempts:   n,
						Duration:   time.Since(start),
					}
					cancel()
				})
				return
			}
		}()
	}
	wg.Wait()

	if result != nil {
		return result, nil
	}
	return nil, fmt.Errorf("vanity search stopped after %d attempts: %w", attempts.Load(), searchCtx.Err())
}

// EstimateDifficulty returns the expected number of attempts for a pattern
// of the given total length (58^n).
func EstimateDifficulty(prefixLen, suffixLen int) uint64 {
	result := uint64(1)
	for i := 0; i < prefixLen+suffixLen; i++ {
		result *= 58
	}
	return result
}

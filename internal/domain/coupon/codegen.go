package coupon

import (
	"context"
	"math/rand/v2"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// codeAlphabet excludes O, I and 0 so codes stay unambiguous when read aloud
// or typed from paper.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	codeLength   = 8
	maxAttempts  = 100
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

// CodeGenerator produces unique coupon codes. A bloom filter of issued codes
// screens candidates before hitting the database; a filter hit (possible
// collision) is confirmed with a repository lookup.
type CodeGenerator struct {
	repo   Repository
	filter *bloom.BloomFilter
	randFn func(n int) int
}

// NewCodeGenerator creates a generator primed with every code the repository
// already knows about.
func NewCodeGenerator(ctx context.Context, repo Repository) (*CodeGenerator, error) {
	codes, err := repo.ListCodes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list issued codes")
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, code := range codes {
		filter.AddString(code)
	}

	return &CodeGenerator{
		repo:   repo,
		filter: filter,
		randFn: rand.IntN,
	}, nil
}

// Generate returns a fresh unused code, retrying on collision up to a
// bounded attempt count. Returns ErrCodeSpaceExhausted when the budget runs
// out.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for range maxAttempts {
		code := g.randomCode()
		taken, err := g.isTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			g.filter.AddString(code)
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Reserve marks a caller-supplied code as issued so later generations avoid
// it. It reports whether the code was already taken.
func (g *CodeGenerator) Reserve(ctx context.Context, code string) (bool, error) {
	taken, err := g.isTaken(ctx, code)
	if err != nil {
		return false, err
	}
	if !taken {
		g.filter.AddString(code)
	}
	return taken, nil
}

func (g *CodeGenerator) isTaken(ctx context.Context, code string) (bool, error) {
	if !g.filter.TestString(code) {
		return false, nil
	}
	// Possible false positive: confirm against the database.
	_, err := g.repo.GetByCode(ctx, code)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, errors.Wrapf(err, "confirm code %s", code)
}

func (g *CodeGenerator) randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[g.randFn(len(codeAlphabet))]
	}
	return string(buf)
}

package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewLocalGenerator),
)

// Generator hands out human-readable business codes. Codes are a display
// convenience; uniqueness is still anchored on the snowflake entity ids.
type Generator interface {
	NextCampaignCode(ctx context.Context) (string, error)
	NextJobCode(ctx context.Context) (string, error)
}

// LocalGenerator keeps per-prefix daily counters in process memory. Counters
// reset when the process restarts; the random suffix keeps codes distinct
// across restarts within the same day.
type LocalGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewLocalGenerator() Generator {
	return &LocalGenerator{counters: make(map[string]int64)}
}

func (g *LocalGenerator) NextCampaignCode(ctx context.Context) (string, error) {
	return g.nextDailyCode("CMP")
}

func (g *LocalGenerator) NextJobCode(ctx context.Context) (string, error) {
	return g.nextDailyCode("IMP")
}

func (g *LocalGenerator) nextDailyCode(prefix string) (string, error) {
	today := time.Now().UTC().Format("060102")
	key := fmt.Sprintf("%s:%s", prefix, today)

	g.mu.Lock()
	g.counters[key]++
	seq := g.counters[key]
	g.mu.Unlock()

	encodedSeq := strings.ToUpper(fmt.Sprintf("%03s", strconv.FormatInt(seq, 36)))

	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, today, encodedSeq, randSuffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bluedex/internal/metrics"
)

const (
	trackingPrefix   = "BDX"
	trackingAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trackingSuffix   = 4

	// maxGenerateAttempts bounds the collision-retry loop. The candidate space
	// per day is 36^4; exhausting ten draws means something is badly wrong.
	maxGenerateAttempts = 10
)

// ErrTrackingIDExhausted is returned when every generated candidate collided.
var ErrTrackingIDExhausted = errors.New("tracking id generation exhausted retries")

// ExistsFunc reports whether a tracking ID is already taken.
type ExistsFunc func(ctx context.Context, trackingID string) (bool, error)

// TrackingGenerator produces human-readable shipment identifiers of the form
// BDX<YYYYMMDD>-<4 random base36 chars>. The existence check keeps candidates
// probabilistically unique; the store's uniqueness constraint is the final
// arbiter at write time.
type TrackingGenerator struct {
	exists ExistsFunc
	now    func() time.Time
}

func NewTrackingGenerator(exists ExistsFunc) *TrackingGenerator {
	return &TrackingGenerator{
		exists: exists,
		now:    time.Now,
	}
}

func (g *TrackingGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate := g.candidate()

		taken, err := g.exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check tracking id candidate: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		metrics.TrackingIDRetriesTotal.Inc()
	}
	return "", ErrTrackingIDExhausted
}

func (g *TrackingGenerator) candidate() string {
	var sb strings.Builder
	sb.WriteString(trackingPrefix)
	sb.WriteString(g.now().UTC().Format("20060102"))
	sb.WriteByte('-')
	for i := 0; i < trackingSuffix; i++ {
		sb.WriteByte(trackingAlphabet[rand.Intn(len(trackingAlphabet))])
	}
	return sb.String()
}

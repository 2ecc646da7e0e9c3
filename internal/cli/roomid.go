package cli

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
)

// Word pools for memorable room ids, format adjective-noun-noun-number
// (e.g. "amber-falcon-harbor-42").
var (
	adjectives = []string{
		"amber", "brisk", "calm", "daring", "eager", "fuzzy", "gentle",
		"hazel", "ivory", "jolly", "keen", "lively", "mellow", "noble",
		"opal", "plucky", "quiet", "rustic", "sunny", "tidy", "vivid",
	}
	animals = []string{
		"falcon", "otter", "lynx", "heron", "badger", "finch", "marmot",
		"puffin", "gecko", "stoat", "wren", "ibex", "tapir", "quokka",
	}
	places = []string{
		"harbor", "meadow", "summit", "grove", "canyon", "lagoon",
		"prairie", "fjord", "mesa", "delta", "ridge", "cove",
	}
)

// generateRoomID creates a random, memorable room id. Collisions are
// tolerable: rooms exist implicitly, so two groups picking the same id
// would simply share one.
func generateRoomID() string {
	parts := []string{
		adjectives[randomIndex(len(adjectives))],
		animals[randomIndex(len(animals))],
		places[randomIndex(len(places))],
		fmt.Sprintf("%d", randomIndex(100)),
	}
	return strings.Join(parts, "-")
}

// randomIndex returns a cryptographically secure random index for a slice
// of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("failed to generate random index", "err", err)
		return 0
	}
	return int(n.Int64())
}

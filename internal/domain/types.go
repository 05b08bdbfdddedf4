package domain

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Pair is an unordered pair of users in canonical order: Low sorts before High.
type Pair struct {
	Low  uuid.UUID
	High uuid.UUID
}

func NewPair(a, b uuid.UUID) Pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// Key is the canonical storage key for the pair.
func (p Pair) Key() string {
	return fmt.Sprintf("%s:%s", p.Low, p.High)
}

func (p Pair) Contains(userID uuid.UUID) bool {
	return p.Low == userID || p.High == userID
}

// Other returns the member of the pair that is not userID.
func (p Pair) Other(userID uuid.UUID) uuid.UUID {
	if p.Low == userID {
		return p.High
	}
	return p.Low
}

func (p Pair) IsDegenerate() bool {
	return p.Low == p.High
}

// SortIDs returns a sorted, de-duplicated copy of ids.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

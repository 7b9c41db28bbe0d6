package vision

import "sync"

// ShoeRanks is the number of rank buckets: 0=ace, 1..8 = two..nine, 9 = all
// ten-valued cards (ten, jack, queen, king).
const ShoeRanks = 10

// Shoe is the multiset of card ranks remaining in the dealing shoe. Counts
// are decremented as the tracker confirms cards on the table and are never
// replenished automatically; Reset re-seeds between shoes.
type Shoe struct {
	mu     sync.Mutex
	counts map[int]int
}

// NewShoe returns a shoe seeded from deckCount standard decks: 4·deckCount
// of each rank 0–8 and 16·deckCount ten-valued cards in bucket 9.
func NewShoe(deckCount int) *Shoe {
	s := &Shoe{}
	s.Reset(deckCount)
	return s
}

// Reset re-seeds the shoe from deckCount standard decks.
func (s *Shoe) Reset(deckCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts = make(map[int]int, ShoeRanks)
	for r := 0; r < ShoeRanks-1; r++ {
		s.counts[r] = 4 * deckCount
	}
	s.counts[ShoeRanks-1] = 16 * deckCount
}

// NormalizeRank folds the face ranks (9=ten, 10=jack, 11=queen, 12=king)
// into the shared ten-valued bucket 9. Other ranks pass through unchanged.
func NormalizeRank(rank int) int {
	if rank >= 9 && rank <= 12 {
		return 9
	}
	return rank
}

// Add returns a card to the shoe. Reports false for ranks outside the
// bucket range.
func (s *Shoe) Add(rank int) bool {
	r := NormalizeRank(rank)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counts[r]; !ok {
		return false
	}
	s.counts[r]++
	return true
}

// Remove takes a card out of the shoe. Reports false when the rank is
// unknown or its bucket is already empty; counts never go negative.
func (s *Shoe) Remove(rank int) bool {
	r := NormalizeRank(rank)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.counts[r]
	if !ok || n == 0 {
		return false
	}
	s.counts[r] = n - 1
	return true
}

// Count returns the remaining count for one normalized rank.
func (s *Shoe) Count(rank int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[NormalizeRank(rank)]
}

// Counts returns a copy of the remaining counts keyed by normalized rank.
func (s *Shoe) Counts() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]int, len(s.counts))
	for r, n := range s.counts {
		out[r] = n
	}
	return out
}

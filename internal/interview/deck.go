package interview

import "math/rand/v2"

// Deck hands out questions in random order without repeating any until
// the table is exhausted.
type Deck struct {
	order []Question
}

// NewDeck shuffles qs with r. qs is copied.
func NewDeck(qs []Question, r *rand.Rand) *Deck {
	order := make([]Question, len(qs))
	copy(order, qs)
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return &Deck{order: order}
}

// Next pops the next unseen question; ok is false once the deck is empty.
func (d *Deck) Next() (q Question, ok bool) {
	if len(d.order) == 0 {
		return Question{}, false
	}
	q, d.order = d.order[0], d.order[1:]
	return q, true
}

// Remaining reports how many questions are still unseen.
func (d *Deck) Remaining() int { return len(d.order) }

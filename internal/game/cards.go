package game

import (
	"fmt"
	"math/rand"
)

type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitString = map[Suit]string{
	Hearts:   "Hearts",
	Diamonds: "Diamonds",
	Clubs:    "Clubs",
	Spades:   "Spades",
}

func (s Suit) String() string {
	return suitString[s]
}

func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

func (s Suit) IsBlack() bool {
	return s == Clubs || s == Spades
}

type Rank int

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankString = map[Rank]string{
	Two:   "2",
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
}

func (r Rank) String() string {
	return rankString[r]
}

// Value returns the trick-taking strength of a rank, 2 for Two up to 14 for Ace.
func (r Rank) Value() int {
	return int(r) + 2
}

type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) Value() int {
	return c.Rank.Value()
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck builds a standard 52-card deck. Every (suit, rank) pair appears
// exactly once.
func NewDeck() *Deck {
	deck := make([]Card, 0, 52)
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			deck = append(deck, Card{suit, rank})
		}
	}
	return &Deck{deck}
}

func (d Deck) Count() int {
	return len(d.Cards)
}

func (d *Deck) Shuffle() {
	rand.Shuffle(d.Count(), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

func (d *Deck) Draw(n int) (cards []Card) {
	for i := 0; i < n; i++ {
		card := d.Cards[len(d.Cards)-1]
		cards = append(cards, card)
		d.Cards = d.Cards[:len(d.Cards)-1]
	}
	return
}

// Deal shuffles a fresh deck and splits it into equal hands of
// cardsPerPlayer cards each. The rest of the deck stays out of play for the
// round.
func Deal(numPlayers, cardsPerPlayer int) [][]Card {
	deck := NewDeck()
	deck.Shuffle()

	hands := make([][]Card, numPlayers)
	for i := range hands {
		hands[i] = deck.Draw(cardsPerPlayer)
	}
	return hands
}

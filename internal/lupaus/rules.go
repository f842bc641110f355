// Package lupaus implements the rules, scoring and room state machine for
// Lupaus, a down-then-up trick-taking bidding game for 3-5 players. Each
// player bids the number of tricks they expect to win each round and scores
// only on an exact match.
package lupaus

import (
	"fmt"

	"lupaus-server/internal/game"
)

// Play is one card played into the current trick, in play order.
type Play struct {
	PlayerIndex int       `json:"playerIndex"`
	Card        game.Card `json:"card"`
}

// ValidateBid checks a bid against the round size and, for the last bidder
// only, the hook rule: the final bid may never make the sum of all bids equal
// the number of cards dealt.
func ValidateBid(bid, cardsThisRound int, priorBids []int, isLastBidder bool) error {
	if bid < 0 || bid > cardsThisRound {
		return fmt.Errorf("INVALID_BID: Bid must be between 0 and %d", cardsThisRound)
	}

	if isLastBidder {
		sum := 0
		for _, b := range priorBids {
			sum += b
		}
		forbidden := cardsThisRound - sum

		if forbidden >= 0 && forbidden <= cardsThisRound && bid == forbidden {
			return fmt.Errorf("FORBIDDEN_BID: The last bidder cannot bid %d, the total would equal the number of cards dealt", forbidden)
		}
	}
	return nil
}

// ForbiddenBid returns the bid the last bidder is not allowed to make, or -1
// when every value is open (the forbidden total falls outside the valid
// range).
func ForbiddenBid(priorBids []int, cardsThisRound int) int {
	sum := 0
	for _, b := range priorBids {
		sum += b
	}
	forbidden := cardsThisRound - sum

	if forbidden >= 0 && forbidden <= cardsThisRound {
		return forbidden
	}
	return -1
}

// CanPlayCard checks suit-following: any card is legal when leading or when
// the hand holds no card of the lead suit, otherwise the play must follow it.
func CanPlayCard(card game.Card, hand []game.Card, leadSuit *game.Suit) error {
	if leadSuit == nil {
		return nil
	}

	hasSuit := false
	for _, c := range hand {
		if c.Suit == *leadSuit {
			hasSuit = true
			break
		}
	}
	if !hasSuit {
		return nil
	}

	if card.Suit != *leadSuit {
		return fmt.Errorf("MUST_FOLLOW_SUIT: You must follow %s, you still hold cards of that suit", leadSuit)
	}
	return nil
}

// TrickWinner resolves a completed trick: the highest-valued card of the lead
// suit wins. The deck holds no duplicates, so ties cannot occur. With no lead
// suit the first play wins; that case should never happen in a real trick.
func TrickWinner(trick []Play, leadSuit *game.Suit) int {
	if len(trick) == 0 {
		return -1
	}

	winning := trick[0]
	if leadSuit == nil {
		return winning.PlayerIndex
	}

	for _, play := range trick {
		if play.Card.Suit != *leadSuit {
			continue
		}
		if winning.Card.Suit != *leadSuit || play.Card.Value() > winning.Card.Value() {
			winning = play
		}
	}
	return winning.PlayerIndex
}

// CardsForRound returns the hand size for a round: startCards down to 1, then
// back up to startCards.
func CardsForRound(round, startCards int) int {
	if round <= startCards {
		return startCards - round + 1
	}
	return round - startCards + 1
}

// IsGameFinished reports whether the down-then-up sequence is complete. The
// sequence has 2*startCards - 1 rounds.
func IsGameFinished(currentRound, startCards int) bool {
	return currentRound >= 2*startCards-1
}

func IsValidPlayerCount(count, min, max int) bool {
	return count >= min && count <= max
}

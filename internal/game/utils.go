// internal/game/utils.go
package game

import "sort"

// rankGroups buckets the given players by the rank of the card they hold and
// returns the buckets in ascending rank order. Players without a card are
// skipped. Within a bucket, players keep the order they were passed in.
func rankGroups(state GameState, playerIDs []PlayerID) [][]PlayerID {
	byRank := make(map[Rank][]PlayerID)
	for _, id := range playerIDs {
		p := state.Players[id]
		if p.Card == nil {
			continue
		}
		byRank[p.Card.Rank] = append(byRank[p.Card.Rank], id)
	}

	ranks := make([]Rank, 0, len(byRank))
	for rank := range byRank {
		ranks = append(ranks, rank)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })

	groups := make([][]PlayerID, 0, len(ranks))
	for _, rank := range ranks {
		groups = append(groups, byRank[rank])
	}
	return groups
}

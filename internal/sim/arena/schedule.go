package arena

import "sort"

// Pairs lists every unordered pair (i < j) of n players in canonical order.
func Pairs(n int) [][2]int {
	out := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// CircleRounds splits the round robin of n players into rounds in which
// nobody plays twice (circle method). Odd n gets a bye each round. Within a
// pair the lower index comes first.
func CircleRounds(n int) [][][2]int {
	if n < 2 {
		return nil
	}
	size := n
	if size%2 == 1 {
		size++
	}
	slots := make([]int, size)
	for i := range slots {
		slots[i] = i
	}
	if size != n {
		slots[size-1] = -1
	}

	rounds := make([][][2]int, 0, size-1)
	for r := 0; r < size-1; r++ {
		round := make([][2]int, 0, size/2)
		for i := 0; i < size/2; i++ {
			a, b := slots[i], slots[size-1-i]
			if a < 0 || b < 0 {
				continue
			}
			if b < a {
				a, b = b, a
			}
			round = append(round, [2]int{a, b})
		}
		sort.Slice(round, func(i, j int) bool {
			if round[i][0] != round[j][0] {
				return round[i][0] < round[j][0]
			}
			return round[i][1] < round[j][1]
		})
		rounds = append(rounds, round)

		// Keep slot 0 fixed and rotate the rest one step.
		last := slots[size-1]
		copy(slots[2:], slots[1:size-1])
		slots[1] = last
	}
	return rounds
}

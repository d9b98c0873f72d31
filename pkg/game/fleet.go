package game

import "sort"

// Fleet maps a ship size to the number of ships of that size.
type Fleet map[int]int

// DefaultFleet returns the standard ten ship fleet: one of size 4, two of 3,
// three of 2 and four of 1.
func DefaultFleet() Fleet {
	return Fleet{4: 1, 3: 2, 2: 3, 1: 4}
}

// Sizes lists every ship of the fleet, largest first.
func (f Fleet) Sizes() []int {
	var sizes []int
	for size, count := range f {
		for i := 0; i < count; i++ {
			sizes = append(sizes, size)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

func (f Fleet) Total() int {
	total := 0
	for _, count := range f {
		total += count
	}
	return total
}

func (f Fleet) clone() Fleet {
	c := make(Fleet, len(f))
	for size, count := range f {
		c[size] = count
	}
	return c
}

// Package exitcontrol runs the final sampled inspection before a lot ships.
package exitcontrol

// SamplePositions returns the default inspection plan for a lot: the first
// five units, then every tenth unit starting at position 15, all 1-based and
// capped at the lot quantity. Lots of five or fewer are inspected in full.
func SamplePositions(lotQuantity int) []int {
	if lotQuantity <= 0 {
		return nil
	}
	var positions []int
	head := lotQuantity
	if head > 5 {
		head = 5
	}
	for i := 1; i <= head; i++ {
		positions = append(positions, i)
	}
	if lotQuantity > 5 {
		for pos := 15; pos <= lotQuantity; pos += 10 {
			positions = append(positions, pos)
		}
	}
	return positions
}

package todo

// CalculateProgress returns the average progress percentage of the active
// todos in todos. Nil entries and soft-deleted todos are skipped; the result
// is 0 when nothing remains.
func CalculateProgress(todos []*Todo) int {
	var total, n int
	for _, t := range todos {
		if t == nil || t.IsDeleted() {
			continue
		}
		total += t.ProgressPercent
		n++
	}
	if n == 0 {
		return 0
	}
	return total / n
}

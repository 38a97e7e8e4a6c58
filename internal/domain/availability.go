package domain

import "time"

// Overlaps compares two inclusive date ranges. Ranges that only touch on a shared day overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !(DateOf(aEnd).Before(DateOf(bStart)) || DateOf(aStart).After(DateOf(bEnd)))
}

// FindConflicts returns the confirmed or ongoing orders on productID whose range overlaps
// [start, end]. excludeID skips the order under test; 0 excludes nothing.
func FindConflicts(orders []RentalOrder, productID int64, start, end time.Time, excludeID int64) []RentalOrder {
	var conflicts []RentalOrder
	for i := range orders {
		o := &orders[i]
		if o.ProductID != productID || !o.State.Commits() {
			continue
		}
		if excludeID != 0 && o.ID == excludeID {
			continue
		}
		if Overlaps(o.StartDate, o.EndDate, start, end) {
			conflicts = append(conflicts, *o)
		}
	}
	return conflicts
}

func newConflictError(p *Product, conflicts []RentalOrder) *ConflictError {
	err := &ConflictError{ProductID: p.ID, ProductName: p.Name}
	for _, c := range conflicts {
		if c.OrderNumber != "" {
			err.OrderNumbers = append(err.OrderNumbers, c.OrderNumber)
		}
	}
	return err
}

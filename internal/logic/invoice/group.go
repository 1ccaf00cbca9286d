package invoice

// Group is a set of invoices sharing the same value of the grouping column.
type Group struct {
	Key     string
	Records []Record
}

func (g Group) Len() int {
	return len(g.Records)
}

// First is the record used to preview the whole group.
func (g Group) First() Record {
	return g.Records[0]
}

// GroupBy partitions records by the value of column. Members keep their input
// order, but the order of the groups themselves is unspecified and changes
// between runs. An empty column puts every record in its own group, in input
// order.
func GroupBy(records []Record, column string) ([]Group, error) {
	if column == "" {
		groups := make([]Group, 0, len(records))
		for _, rec := range records {
			groups = append(groups, Group{Records: []Record{rec}})
		}

		return groups, nil
	}

	members := make(map[string][]Record)
	for _, rec := range records {
		key, err := rec.Value(column)
		if err != nil {
			return nil, err
		}

		members[key] = append(members[key], rec)
	}

	groups := make([]Group, 0, len(members))
	for key, recs := range members {
		groups = append(groups, Group{Key: key, Records: recs})
	}

	return groups, nil
}

// Count sums the group sizes.
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += g.Len()
	}

	return n
}

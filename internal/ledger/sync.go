package ledger

// SyncResult describes one table synchronization pass.
type SyncResult struct {
	Text string
	// StaleRows are ids whose table row had no surviving block.
	StaleRows []string
	// OrphanBlocks are ids whose block had no table row.
	OrphanBlocks []string
	// Unresolved are orphan ids whose block boundary could not be found.
	// They are left in place.
	Unresolved []string
	Changed    bool
}

// Sync reconciles meal blocks with meals table rows. Rows whose id has no
// block before the table are removed, and so are blocks whose id has no
// row. Both sets come from the same snapshot, so the outcome does not
// depend on removal order. A note without a meals table is left alone.
func Sync(text string) SyncResult {
	res := SyncResult{Text: text}
	doc := Parse(text)
	if doc.Table == nil {
		return res
	}

	tableIDs := doc.TableIDs()
	blockIDs := doc.BlockIDs()
	inTable := toSet(tableIDs)
	inBlocks := toSet(blockIDs)

	for _, id := range tableIDs {
		if _, ok := inBlocks[id]; !ok {
			res.StaleRows = append(res.StaleRows, id)
		}
	}

	drop := make(map[int]bool)
	for _, id := range blockIDs {
		if _, ok := inTable[id]; ok {
			continue
		}
		res.OrphanBlocks = append(res.OrphanBlocks, id)
		r, ok := doc.blockBounds(id)
		if !ok {
			res.Unresolved = append(res.Unresolved, id)
			continue
		}
		for i := r.Start; i < r.End; i++ {
			drop[i] = true
		}
	}

	// Ids that still have a marker before the table once blocks are gone.
	surviving := make(map[string]struct{})
	for i := 0; i < doc.Table.Range.Start; i++ {
		if drop[i] {
			continue
		}
		for _, id := range lineMealIDs(doc.Lines[i]) {
			surviving[id] = struct{}{}
		}
	}
	for i := doc.Table.Range.Start; i < doc.Table.Range.End; i++ {
		for _, id := range lineMealIDs(doc.Lines[i]) {
			if _, ok := surviving[id]; !ok {
				drop[i] = true
				break
			}
		}
	}

	if len(drop) == 0 {
		return res
	}
	res.Text = collapseBlankLines(doc.dropLines(drop))
	res.Changed = res.Text != text
	return res
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

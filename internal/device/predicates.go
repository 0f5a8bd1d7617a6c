package device

// OnConstruct matches handles on the given construct.
func OnConstruct(constructID string) func(Handle) bool {
	return func(h Handle) bool {
		return h.ConstructID() == constructID
	}
}

// OnGrid matches handles on the given grid.
func OnGrid(gridID string) func(Handle) bool {
	return func(h Handle) bool {
		return h.GridID() == gridID
	}
}

// HasInventory matches handles exposing at least one inventory slot.
func HasInventory(h Handle) bool {
	s, ok := h.(StorageOwner)
	return ok && s.InventoryCount() > 0
}

// All matches when every predicate does.
func All(preds ...func(Handle) bool) func(Handle) bool {
	return func(h Handle) bool {
		for _, p := range preds {
			if !p(h) {
				return false
			}
		}
		return true
	}
}

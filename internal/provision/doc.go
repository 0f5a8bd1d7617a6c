// Package provision renames devices so every block on the controller's grid
// carries a common name prefix.
//
// The pass is idempotent: a device whose name already starts with the prefix
// is left alone, so running it twice renames nothing the second time.
//
// # Usage
//
//	p := provision.New(registry, echo, logger)
//	report, err := p.Run(ctx, provision.Options{
//	    Prefix:      "GobCursor - ",
//	    Scope:       provision.ScopeGrid,
//	    GridID:      ctrl.GridID(),
//	    ConstructID: ctrl.ConstructID(),
//	})
package provision

// Package device is the block directory gridctl controls.
//
// The Registry keeps every block of a construct (batteries, tanks, lights,
// text panels, cargo containers, production blocks) in SQLite and mirrors
// them in an in-memory cache. Callers never see rows directly: they resolve
// names into Handles and use the capability interfaces a handle implements.
//
// # Capabilities
//
//   - Handle: identity and operational state (enabled and functional)
//   - Switchable: on/off switch, lights only
//   - PowerStore: battery charge
//   - GasTank: gas capacity and fill ratio
//   - TextSurface: full-overwrite text with display hints
//   - StorageOwner / Inventory: slots, stacks and transfers
//   - Renamable: display name changes
//
// # Lookups
//
// DeviceByName, GroupByName and Devices never fail hard on absence; they
// return ErrDeviceNotFound or ErrGroupNotFound (or an empty slice) so callers
// can degrade. A handle reads through the cache, so the host refreshes the
// cache before each invocation to pick up external changes.
//
// # Usage
//
//	reg := device.NewRegistry(
//	    device.NewSQLiteRepository(db.DB),
//	    device.NewSQLiteGroupRepository(db.DB),
//	    device.NewSQLiteInventoryRepository(db.DB),
//	)
//	if err := reg.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	group, err := reg.GroupByName(ctx, "Asteroid - Batteries")
//	if err != nil {
//	    return err
//	}
//	for _, b := range device.OfType[device.PowerStore](group.Members) {
//	    fmt.Println(b.Name(), b.CurrentStoredPower())
//	}
package device

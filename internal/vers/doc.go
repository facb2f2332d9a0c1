// Package vers implements versioned document models and the migration engine
// that reconciles them to a requested schema version at load time.
//
// # Overview
//
// A document in the store carries a schema version. Code reads it through a
// shape: a Go struct authored against one home version, with a declared list
// of fields. Decoding a raw document into a shape copies declared fields into
// typed struct fields and everything else into the model's catch-all bag.
// Reconcile then walks the model one version at a time towards the target,
// running the shape's rule for each step:
//
//	raw, _ := gw.Fetch(ctx, "t1")           // stored at version 2
//	m, err := testmodel.ShapeV3.Load(raw, 3) // upgrade rule 2 runs, version -> 3
//
// Upgrade rules are keyed by the version being left on the way up, downgrade
// rules by the version being left on the way down. A rule mutates the bag and
// typed fields; the engine moves the version counter after the rule returns.
//
// # Bridges
//
// A step with no declared rule is bridged (the counter moves, nothing else
// does) as long as it stays inside what the shape knows about: upgrades up to
// its home version, and downgrades from versions it declares downgrade rules
// for. Outside that span the step fails with MigrationMissingError. Bridging is
// not verified; a gap whose shape actually changed must declare a rule.
//
// # Floor shapes
//
// A shape with no rules at all only accepts documents already at the target
// version.
//
// # Writing back
//
// Encode writes _id, schemaVersion, every declared field and then every bag
// entry that is left. Upgraded and Downgraded are never stored. A model whose
// Reconcile failed is partially migrated and must not be written.
package vers

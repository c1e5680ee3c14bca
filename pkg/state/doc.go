// Package state defines persistence-facing contracts for loading and saving
// per-scope defaults for a props component, plus a Loader that turns stored
// records into defaults layers and pushes them into a kernel.
//
// Responsibilities:
//   - Store only loads/saves the defaults of a single Ref.
//   - Loader loads several scopes, orders them weakest first and pushes them
//     so the strongest scope ends up as the newest defaults layer.
//   - The props package stays persistence-agnostic; storage lives behind
//     Store implementations supplied by consumers.
//
// Data flow:
//
//	Store -> Loader.Layers -> props.DefaultsLayer -> Kernel.PushDefaults
//
// Provenance:
//
//	Meta.SnapshotID becomes DefaultsLayer.SnapshotID and shows up in the
//	resolution trace of every field the layer supplied.
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key based on the scope
//	model (`system/tenant/org/team/user`).
package state

// Package backfill reprocesses stored assets to fill derived fields they
// are missing.
//
// A run walks every asset in id order, one keyset page at a time, and
// handles one record before starting the next so that at most one decoded
// image and one outbound fetch are in flight. For each record it:
//   - decides which derivation stages have nothing stored yet
//   - fetches the original bytes from the asset's source URL
//   - runs only those stages and fuses the results without overwriting
//     values that are already present
//   - writes the record back only when a field changed
//
// A failing record is logged and counted, never fatal to the run. Runs are
// exclusive: the HTTP trigger, the periodic scheduler and the CLI share the
// same running flag through a Reprocessor.
package backfill

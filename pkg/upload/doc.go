// Package upload hands finished code locations to a sink and registers
// them with a [codelocation.Accumulator].
//
// Two sinks exist:
//
//   - [FileUploader] writes one JSON document per code location, plus
//     optional DOT and SVG diagrams. Files are final as soon as they are
//     written, so their names are registered as non-waitable.
//   - [HTTPUploader] posts each code location to a collector (see
//     "stackscan serve"). The collector processes records asynchronously,
//     so each upload registers a waitable handle that polls the record
//     until it is COMPLETE or FAILED.
//
// [Multi] fans one run out to several sinks.
package upload

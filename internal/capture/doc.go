// Package capture appends bytes intercepted from tracked files to
// line-aligned, size-bounded rotation segments.
//
// Every tracked path has an identity token (see Token). A Sink owns the
// current segment for one open handle of a tracked path and rotates to a new
// segment once the current one exceeds its threshold and the chunk just
// written ends with a line terminator. Segments live in one flat directory:
//
//	{token}.{unixMicro}[.{n}]
//
// where n disambiguates segments created for the same token in the same
// microsecond. Once a newer segment for the same sink exists, older ones
// are never written again and may be shipped independently.
package capture

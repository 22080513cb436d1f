// # csvcodec: Encoding-Aware CSV Row Codecs for Go
//
// csvcodec exchanges CSV rows as Unicode text no matter whether the underlying stream carries UTF-8 text or bytes in some other encoding. It decides per stream whether the grammar can tokenize the encoded bytes directly (the fast path for 8-bit clean encodings) or whether lines must be transcoded first, and it transcodes every row exactly once.
//
// # Features
//
// - Row readers and writers for three row shapes: flat lists (`Reader`, `Writer`), name-keyed mappings (`DictReader`, `DictWriter`) and named records (`RecordReader`, `RecordWriter`).
// - Encoding classification (`charset.IsTransparent`) deciding between tokenizing bytes and transcoding lines.
// - An explicit, injectable dialect `Registry` with the `excel`, `excel-tab`, `unix` and `ascii` dialects built in.
// - A typed dispatch `Table` mapping (operation, row shape, stream mode) to codec constructors.
// - Scoped file helpers (`OpenReader`, `OpenWriter`, `WithReader`, `WithWriter`, `IterRows`) that always release the file, with optional compression by file suffix.
// - One-call shortcuts (`ReadCSV`, `ReadCSVAll`, `WriteCSV`) over paths, streams, hashes and memory.
// - Detection of known grammar engine defects with a transparent fix for escape-character doubling and a warning for embedded newlines under `QuoteNone`.
//
// # Getting Started
//
// The module path is `github.com/oleg578/csvcodec`. The grammar engine lives in the `grammar` subpackage and encoding resolution in `charset`.
package csvcodec

// Package grammar implements the CSV grammar: a streaming record parser and a
// record formatter driven by a Dialect (delimiter, quote char, doublequote,
// escape char, line terminator, quoting mode, skip-initial-space, strict).
//
// # Modes
//
// In Text mode input and output are UTF-8 and the dialect's characters are
// runes. In Bytes mode every byte is one character, which lets callers parse
// data in any 8-bit-clean encoding without decoding it first; the dialect's
// characters then name byte values.
//
// # Reading
//
// A Reader pulls physical lines from a LineSource (see NewLineReader) and
// counts them in LineNum. A quoted field may span several lines, so LineNum
// can exceed the number of records read.
//
//	r, err := grammar.NewReader(grammar.NewLineReader(f, grammar.Terminator(d, grammar.Text)), d, grammar.Text)
//	for {
//	    record, err := r.Read()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// # Writing
//
// A Writer formats one record per Write call and hands the finished line to
// the destination in a single write.
//
// Parse failures are reported as *ParseError wrapping one of the package's
// sentinel errors.
package grammar

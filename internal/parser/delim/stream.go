package delim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sverdz/CSV-and-EXEL/internal/config"
	"github.com/sverdz/CSV-and-EXEL/internal/rows"
)

// ErrMalformedRecord marks a record recovered from an unbalanced-quote tail
// at end of input. Warning-level: the record is still emitted.
var ErrMalformedRecord = errors.New("delim: unbalanced quotes at end of input")

// StreamRecords reassembles logical records from src and streams them into
// pooled *rows.Row values. The first emitted record is the header, by the
// caller's convention; this function does not interpret it.
//
// Options:
//
//	delimiter   one-character string, default ","
//	quote       one-character string, default "\""
//	trim_space  trim each field's edge whitespace, default false
//
// Row numbering is by logical record (1-based), not physical line.
//
// NOTE on cancellation: on ctx cancellation in-flight rows must be Drop()ed,
// not Free()d, so the pool cannot hand them back to us while a downstream
// stage still reads them.
func StreamRecords(
	ctx context.Context,
	src io.ReadCloser,
	opt config.Options,
	out chan<- *rows.Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	delim := opt.Rune("delimiter", ',')
	quote := opt.Rune("quote", '"')
	trim := opt.Bool("trim_space", false)

	br := bufio.NewReaderSize(src, 1<<16)

	var (
		chunk   []string
		rec     int
		first   = true
		readErr error
	)

	emit := func(norm string) error {
		rec++
		fields := SplitFields(norm, delim, quote)
		row := rows.Get(len(fields))
		row.Line = rec
		for i, f := range fields {
			if trim {
				f = strings.TrimSpace(f)
			}
			row.V[i] = f
		}
		select {
		case out <- row:
			return nil
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			readErr = err
			break
		}
		atEOF := err == io.EOF

		if line != "" || !atEOF {
			line = strings.TrimRight(line, "\r\n")
			if first {
				line = strings.TrimPrefix(line, "\uFEFF")
				first = false
			}
			chunk = append(chunk, line)

			norm := NormalizeQuotes(strings.Join(chunk, "\n"))
			if Balanced(norm, quote) {
				chunk = chunk[:0]
				if norm != "" { // blank physical lines between records are noise
					if err := emit(norm); err != nil {
						return err
					}
				}
			}
		}

		if atEOF {
			break
		}
	}

	// Best-effort recovery: a pending unbalanced buffer at EOF is still a
	// record. Silent data loss is worse than a ragged last row.
	if len(chunk) > 0 {
		norm := NormalizeQuotes(strings.Join(chunk, "\n"))
		if norm != "" {
			if onErr != nil && !Balanced(norm, quote) {
				onErr(rec+1, ErrMalformedRecord)
			}
			if err := emit(norm); err != nil {
				return err
			}
		}
	}

	if readErr != nil {
		if onErr != nil {
			onErr(rec, fmt.Errorf("read source: %w", readErr))
		}
		return readErr
	}
	return nil
}

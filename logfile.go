package main

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
)

// A LogWriter duplicates decoded readings to an append-mode file. Writes are
// buffered and flushed every flushEvery records: flushing too often wears
// flash storage, too rarely loses readings on power loss.
type LogWriter struct {
	f *os.File
	w *bufio.Writer

	crlf       bool
	flushEvery int
	count      int
}

func NewLogWriter(path string, crlf bool, flushEvery int) (*LogWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening log file")
	}

	if flushEvery < 1 {
		flushEvery = 1
	}

	return &LogWriter{
		f:          f,
		w:          bufio.NewWriter(f),
		crlf:       crlf,
		flushEvery: flushEvery,
	}, nil
}

// WriteLine appends one reading with the configured line ending.
func (lw *LogWriter) WriteLine(line string) error {
	ending := "\n"
	if lw.crlf {
		ending = "\r\n"
	}

	if _, err := lw.w.WriteString(line + ending); err != nil {
		return err
	}

	lw.count++
	if lw.count >= lw.flushEvery {
		lw.count = 0
		return lw.w.Flush()
	}
	return nil
}

// Close flushes buffered readings and closes the file.
func (lw *LogWriter) Close() error {
	if err := lw.w.Flush(); err != nil {
		lw.f.Close()
		return err
	}
	return lw.f.Close()
}

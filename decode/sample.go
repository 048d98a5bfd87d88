package decode

import (
	"bufio"
	"io"
)

// A SampleReader yields little-endian signed 16-bit samples from a byte
// stream, typically the stdout of rtl_fm.
type SampleReader struct {
	br *bufio.Reader
}

func NewSampleReader(r io.Reader) *SampleReader {
	return &SampleReader{br: bufio.NewReaderSize(r, 1<<14)}
}

// Next returns the next sample. io.EOF reports a cleanly exhausted stream,
// a stream ending between the two bytes of a sample reports
// io.ErrUnexpectedEOF.
func (sr *SampleReader) Next() (int16, error) {
	lo, err := sr.br.ReadByte()
	if err != nil {
		return 0, err
	}

	hi, err := sr.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}

	return int16(uint16(lo) | uint16(hi)<<8), nil
}

// eofOK maps end-of-stream conditions to a clean shutdown.
func eofOK(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}

// Package wav provides a source and a sink of PCM wav files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/stretch/signal"
)

const formatPCM = 1

var (
	// ErrInvalidFile is returned when file cannot be decoded as wav.
	ErrInvalidFile = errors.New("wav is not valid")
	// ErrUnsupportedFormat is returned when wav data is not PCM.
	ErrUnsupportedFormat = errors.New("only PCM wav is supported")
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
)

func supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}

type (
	// Source reads frames from wav file. It must be closed after use.
	Source struct {
		file       *os.File
		decoder    *wav.Decoder
		ib         *audio.IntBuffer
		sampleRate int
		channels   int
		bitDepth   signal.BitDepth
		frames     int
		read       int
	}

	// Sink writes frames to wav file. The file is finalized with Commit or
	// removed with Abort.
	Sink struct {
		path     string
		file     *os.File
		encoder  *wav.Encoder
		bitDepth signal.BitDepth
		format   *audio.Format
		written  int
		started  bool
		done     bool
	}
)

// Open opens the wav file and reads its properties.
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := newSource(file)
	if err != nil {
		if errClose := file.Close(); errClose != nil {
			return nil, fmt.Errorf("%v: failed to close %s: %w", err, path, errClose)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func newSource(file *os.File) (*Source, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidFile)
	}
	if decoder.NumChans == 0 || decoder.SampleRate == 0 {
		return nil, ErrInvalidFile
	}
	if decoder.WavAudioFormat != formatPCM {
		return nil, fmt.Errorf("format %d: %w", decoder.WavAudioFormat, ErrUnsupportedFormat)
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !supported(bitDepth) {
		return nil, fmt.Errorf("%d bit: %w", bitDepth, ErrUnsupportedBitDepth)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidFile)
	}

	channels := int(decoder.NumChans)
	return &Source{
		file:       file,
		decoder:    decoder,
		sampleRate: int(decoder.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     decoder.PCMSize / (channels * int(bitDepth) / 8),
		ib: &audio.IntBuffer{
			Format:         decoder.Format(),
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// SampleRate of the wav file.
func (s *Source) SampleRate() int {
	return s.sampleRate
}

// Channels returns number of channels of the wav file.
func (s *Source) Channels() int {
	return s.channels
}

// BitDepth of the wav file.
func (s *Source) BitDepth() signal.BitDepth {
	return s.bitDepth
}

// Frames returns total number of frames in the wav file.
func (s *Source) Frames() int {
	return s.frames
}

// Remaining returns number of frames which weren't read yet.
func (s *Source) Remaining() int {
	if left := s.frames - s.read; left > 0 {
		return left
	}
	return 0
}

// Read fills the buffer with next frames. Implementation follows next
// error conventions:
// 		- nil if a full buffer was read;
// 		- io.EOF if no data was read;
// 		- io.ErrUnexpectedEOF if not a full buffer was read.
func (s *Source) Read(out signal.Float32) (int, error) {
	size := out.Size()
	if size == 0 {
		return 0, nil
	}
	if n := size * s.channels; cap(s.ib.Data) < n {
		s.ib.Data = make([]int, n)
	}
	read := 0
	for read < size {
		s.ib.Data = s.ib.Data[:(size-read)*s.channels]
		samples, err := s.decoder.PCMBuffer(s.ib)
		if err != nil && err != io.EOF {
			s.read += read
			return read, err
		}
		if samples == 0 {
			break
		}
		n := signal.InterInt{
			Data:     s.ib.Data[:samples],
			Channels: s.channels,
			BitDepth: s.bitDepth,
		}.CopyTo(out.Offset(read))
		if n == 0 {
			break
		}
		read += n
	}
	s.read += read
	switch {
	case read == 0:
		return 0, io.EOF
	case read != size:
		return read, io.ErrUnexpectedEOF
	}
	return read, nil
}

// Close closes the file.
func (s *Source) Close() error {
	return s.file.Close()
}

// Create creates the wav file, existing file is truncated.
func Create(path string, sampleRate, channels int, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, fmt.Errorf("%d bit: %w", bitDepth, ErrUnsupportedBitDepth)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{
		path:     path,
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, int(bitDepth), channels, formatPCM),
		bitDepth: bitDepth,
		format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
	}, nil
}

// Path returns the path of the wav file.
func (s *Sink) Path() string {
	return s.path
}

// Written returns number of frames written so far.
func (s *Sink) Written() int {
	return s.written
}

// Write encodes the buffer.
func (s *Sink) Write(in signal.Float32) error {
	if in.Size() == 0 {
		return nil
	}
	if err := s.write(in.AsInterInt(s.bitDepth)); err != nil {
		return err
	}
	s.written += in.Size()
	return nil
}

func (s *Sink) write(data []int) error {
	s.started = true
	return s.encoder.Write(&audio.IntBuffer{
		Format:         s.format,
		Data:           data,
		SourceBitDepth: int(s.bitDepth),
	})
}

// Commit writes wav headers and closes the file. Empty file gets valid
// headers as well.
func (s *Sink) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if !s.started {
		if err := s.write([]int{}); err != nil {
			s.file.Close()
			return err
		}
	}
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Abort closes and removes the file.
func (s *Sink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.file.Close(); err != nil {
		return err
	}
	return os.Remove(s.path)
}

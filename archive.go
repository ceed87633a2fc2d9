package shocklet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"
	"golang.org/x/crypto/pbkdf2"
)

const (
	archiveMagic   = 0x53484B41 // "SHKA"
	archiveVersion = 1

	archiveFlagEncrypted = 1 << 0

	archiveNonceSize = 12
	archiveSaltSize  = 32
	archiveKeySize   = 32
	archiveKDFIters  = 100000
)

// ArchiveOptions configures archive persistence.
type ArchiveOptions struct {
	// Password enables AES-256-GCM encryption of the compressed payload,
	// with the key derived via PBKDF2. Empty means unencrypted.
	Password string
}

// WriteArchive persists a detection result to a compressed binary archive.
// Only the artifacts present on the result are written; ReadArchive restores
// exactly those. The payload is snappy-compressed and, when a password is
// set, sealed with AES-256-GCM.
func WriteArchive(w io.Writer, res *Result, opts ArchiveOptions) error {
	payload := encodeResult(res)
	body := snappy.Encode(nil, payload)

	var flags byte
	if opts.Password != "" {
		flags |= archiveFlagEncrypted
		sealed, err := sealArchive(body, opts.Password)
		if err != nil {
			return err
		}
		body = sealed
	}

	header := make([]byte, 6)
	binary.LittleEndian.PutUint32(header[0:4], archiveMagic)
	header[4] = archiveVersion
	header[5] = flags
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadArchive restores a detection result from an archive stream.
func ReadArchive(r io.Reader, opts ArchiveOptions) (*Result, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[0:4]) != archiveMagic {
		return nil, errors.New("archive: bad magic")
	}
	if header[4] != archiveVersion {
		return nil, fmt.Errorf("archive: unsupported version %d", header[4])
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if header[5]&archiveFlagEncrypted != 0 {
		if opts.Password == "" {
			return nil, errors.New("archive: encrypted archive requires a password")
		}
		body, err = openArchive(body, opts.Password)
		if err != nil {
			return nil, err
		}
	}
	payload, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, err
	}
	return decodeResult(payload)
}

// SaveArchiveFile writes a result archive to a file path.
func SaveArchiveFile(path string, res *Result, opts ArchiveOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteArchive(f, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadArchiveFile reads a result archive from a file path.
func LoadArchiveFile(path string, opts ArchiveOptions) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArchive(f, opts)
}

func sealArchive(plain []byte, password string) ([]byte, error) {
	salt := make([]byte, archiveSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	gcm, err := archiveAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, archiveNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, archiveSaltSize+archiveNonceSize+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func openArchive(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < archiveSaltSize+archiveNonceSize {
		return nil, errors.New("archive: truncated encrypted payload")
	}
	salt := sealed[:archiveSaltSize]
	nonce := sealed[archiveSaltSize : archiveSaltSize+archiveNonceSize]
	gcm, err := archiveAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, sealed[archiveSaltSize+archiveNonceSize:], nil)
	if err != nil {
		return nil, errors.New("archive: decryption failed (wrong password or corrupt data)")
	}
	return plain, nil
}

func archiveAEAD(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, archiveKDFIters, archiveKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Section tags inside the payload.
const (
	sectionSurface byte = iota + 1
	sectionIndicator
	sectionExtrema
	sectionWindows
	sectionWeighted
)

func encodeResult(res *Result) []byte {
	var buf bytes.Buffer
	if res.Surface != nil {
		buf.WriteByte(sectionSurface)
		putUint32(&buf, uint32(len(res.Surface.Widths)))
		putUint32(&buf, uint32(res.Surface.Len()))
		for _, w := range res.Surface.Widths {
			putUint32(&buf, uint32(w))
		}
		for _, row := range res.Surface.Data {
			putFloats(&buf, row)
		}
	}
	if res.Indicator != nil {
		buf.WriteByte(sectionIndicator)
		putUint32(&buf, uint32(len(res.Indicator)))
		putFloats(&buf, res.Indicator)
	}
	if res.Extrema != nil {
		buf.WriteByte(sectionExtrema)
		putUint32(&buf, uint32(len(res.Extrema)))
		for _, t := range res.Extrema {
			putUint32(&buf, uint32(t))
		}
	}
	if res.Windows != nil {
		buf.WriteByte(sectionWindows)
		putUint32(&buf, uint32(len(res.Windows)))
		for _, w := range res.Windows {
			putUint32(&buf, uint32(w.Start))
			putUint32(&buf, uint32(w.End))
		}
	}
	if res.Weighted != nil {
		buf.WriteByte(sectionWeighted)
		putUint32(&buf, uint32(len(res.Weighted)))
		putFloats(&buf, res.Weighted)
	}
	return buf.Bytes()
}

func decodeResult(payload []byte) (*Result, error) {
	res := &Result{}
	r := bytes.NewReader(payload)
	for {
		tag, err := r.ReadByte()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		switch tag {
		case sectionSurface:
			nw, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			T, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			s := &Surface{Widths: make([]int, nw), Data: make([][]float64, nw)}
			for i := range s.Widths {
				w, err := getUint32(r)
				if err != nil {
					return nil, err
				}
				s.Widths[i] = int(w)
			}
			for i := range s.Data {
				row, err := getFloats(r, int(T))
				if err != nil {
					return nil, err
				}
				s.Data[i] = row
			}
			res.Surface = s
		case sectionIndicator:
			n, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			if res.Indicator, err = getFloats(r, int(n)); err != nil {
				return nil, err
			}
		case sectionExtrema:
			n, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			res.Extrema = make([]int, n)
			for i := range res.Extrema {
				v, err := getUint32(r)
				if err != nil {
					return nil, err
				}
				res.Extrema[i] = int(v)
			}
		case sectionWindows:
			n, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			res.Windows = make([]Window, n)
			for i := range res.Windows {
				start, err := getUint32(r)
				if err != nil {
					return nil, err
				}
				end, err := getUint32(r)
				if err != nil {
					return nil, err
				}
				res.Windows[i] = Window{Start: int(start), End: int(end)}
			}
		case sectionWeighted:
			n, err := getUint32(r)
			if err != nil {
				return nil, err
			}
			if res.Weighted, err = getFloats(r, int(n)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("archive: unknown section tag %d", tag)
		}
	}
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putFloats(buf *bytes.Buffer, vals []float64) {
	var b [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	}
}

func getUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func getFloats(r *bytes.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	var b [8]byte
	for i := range out {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	}
	return out, nil
}

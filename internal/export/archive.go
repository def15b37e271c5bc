// Package export writes and reads feedback archives: a gzip-compressed tar
// holding a manifest and the collection, optionally encrypted with a
// password.
package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/crypto"
	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
)

// FormatVersion is written to every manifest.
const FormatVersion = "1.0"

const (
	manifestName = "manifest.json"
	dataName     = "feedbacks.json"
	maxEntrySize = 256 << 20
)

// Manifest describes an archive.
type Manifest struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Service    string      `json:"service,omitempty"`
	ItemCount  int         `json:"item_count"`
	Checksum   string      `json:"checksum"`
	Encrypted  bool        `json:"encrypted"`
	Stats      stats.Stats `json:"stats"`
}

// Options controls archive creation.
type Options struct {
	Service  string
	Password string
	Now      func() time.Time
}

// Result summarises a written archive.
type Result struct {
	Manifest  Manifest
	SizeBytes int64
	Duration  time.Duration
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Write encodes records as an archive to w.
func Write(w io.Writer, records []models.Feedback, opts Options) (*Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	if records == nil {
		records = []models.Feedback{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to encode feedbacks", err)
	}
	manifest := Manifest{
		Version:    FormatVersion,
		ExportedAt: start.UTC(),
		Service:    opts.Service,
		ItemCount:  len(records),
		Checksum:   Checksum(data),
		Encrypted:  opts.Password != "",
		Stats:      stats.Project(records),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to encode manifest", err)
	}

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, f := range []struct {
		name string
		body []byte
	}{{manifestName, manifestData}, {dataName, data}} {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), ModTime: start}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, errors.Wrap(errors.ErrInternal, "failed to write archive", err)
		}
		if _, err := tw.Write(f.body); err != nil {
			return nil, errors.Wrap(errors.ErrInternal, "failed to write archive", err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to finish archive", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to finish archive", err)
	}

	out := buf.Bytes()
	if opts.Password != "" {
		if out, err = crypto.EncryptArchive(out, opts.Password); err != nil {
			return nil, err
		}
	}
	n, err := w.Write(out)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "failed to write archive", err)
	}
	return &Result{Manifest: manifest, SizeBytes: int64(n), Duration: now().Sub(start)}, nil
}

// Read decodes and verifies an archive. Encrypted archives need password;
// ErrUnauthorized means it was missing or wrong. A checksum or count
// mismatch is ErrInvalid.
func Read(r io.Reader, password string) (*Manifest, []models.Feedback, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxEntrySize))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInternal, "failed to read archive", err)
	}
	if crypto.IsEncryptedArchive(raw) {
		if password == "" {
			return nil, nil, errors.New(errors.ErrUnauthorized, "archive is encrypted; a password is required")
		}
		if raw, err = crypto.DecryptArchive(raw, password); err != nil {
			return nil, nil, err
		}
	}

	gzr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrInvalid, "not a feedback archive", err)
	}
	defer gzr.Close()

	var manifestData, data []byte
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrInvalid, "corrupt archive", err)
		}
		body, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrInvalid, "corrupt archive", err)
		}
		switch hdr.Name {
		case manifestName:
			manifestData = body
		case dataName:
			data = body
		}
	}
	if manifestData == nil || data == nil {
		return nil, nil, errors.New(errors.ErrInvalid, "archive is missing its manifest or data")
	}

	var m Manifest
	if err := json.Unmarshal(manifestData, &m); err != nil {
		return nil, nil, errors.Wrap(errors.ErrInvalid, "corrupt manifest", err)
	}
	if m.Checksum != Checksum(data) {
		return nil, nil, errors.New(errors.ErrInvalid, "checksum mismatch")
	}
	var records []models.Feedback
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, errors.Wrap(errors.ErrInvalid, "corrupt feedback data", err)
	}
	if len(records) != m.ItemCount {
		return nil, nil, errors.Newf(errors.ErrInvalid, "archive holds %d records, manifest says %d", len(records), m.ItemCount)
	}
	return &m, records, nil
}

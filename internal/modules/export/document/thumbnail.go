package document

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/samber/oops"
)

// ThumbnailPrefix is the path prefix of embedded preview images.
const ThumbnailPrefix = "docProps/thumbnail"

// StripThumbnail copies the package in src without its thumbnail entries.
// Remaining entries are copied raw, keeping their compression. src is
// rewound before reading; the returned reader starts at offset zero.
func StripThumbnail(src io.ReadSeeker) (*bytes.Reader, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, oops.With("context", "failed to rewind package").Wrap(err)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, oops.With("context", "failed to read package").Wrap(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, oops.With("context", "failed to open package").Wrap(err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, ThumbnailPrefix) {
			continue
		}
		if err := copyRaw(zw, f); err != nil {
			return nil, oops.With("entry", f.Name).Wrap(err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, oops.With("context", "failed to finalize package").Wrap(err)
	}

	return bytes.NewReader(out.Bytes()), nil
}

func copyRaw(zw *zip.Writer, f *zip.File) error {
	raw, err := f.OpenRaw()
	if err != nil {
		return err
	}
	header := f.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, raw)
	return err
}

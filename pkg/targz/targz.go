// Package targz packs and unpacks flat gzipped tarballs.
package targz

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"time"

	"github.com/pkg/errors"
)

type Writer struct {
	gzip    *gzip.Writer
	tar     *tar.Writer
	modTime time.Time
}

// NewWriter stamps every entry with modTime.
func NewWriter(output io.Writer, modTime time.Time) *Writer {
	gzipWriter := gzip.NewWriter(output)
	return &Writer{
		gzip:    gzipWriter,
		tar:     tar.NewWriter(gzipWriter),
		modTime: modTime,
	}
}

func (w *Writer) AddFile(name string, content []byte) error {
	err := w.tar.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0644,
		Size:     int64(len(content)),
		ModTime:  w.modTime,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write header for %s", name)
	}
	if _, err = w.tar.Write(content); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}

func (w *Writer) Close() error {
	if err := w.tar.Close(); err != nil {
		return err
	}
	return w.gzip.Close()
}

type Visitor interface {
	VisitDirectory(info fs.FileInfo) error
	VisitFile(info fs.FileInfo, content io.Reader) error
}

func Extract(input io.Reader, visitor Visitor) error {
	gzipReader, err := gzip.NewReader(input)
	if err != nil {
		return err
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		info := header.FileInfo()
		if info.IsDir() {
			err = visitor.VisitDirectory(info)
		} else {
			err = visitor.VisitFile(info, tarReader)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

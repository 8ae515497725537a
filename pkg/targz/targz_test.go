package targz

import (
	"bytes"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type memVisitor struct {
	files map[string]string
}

func (v *memVisitor) VisitDirectory(info fs.FileInfo) error {
	return nil
}

func (v *memVisitor) VisitFile(info fs.FileInfo, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	v.files[info.Name()] = string(data)
	return nil
}

func TestWriteExtract(t *testing.T) {
	files := map[string]string{
		"standings.json":    `{"ok": true}`,
		"kernel-panic.json": `{"teamId": 1}`,
		"empty.txt":         "",
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	for _, name := range []string{"standings.json", "kernel-panic.json", "empty.txt"} {
		if err := w.AddFile(name, []byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	visitor := &memVisitor{files: make(map[string]string)}
	if err := Extract(&buf, visitor); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(files, visitor.files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractGarbage(t *testing.T) {
	if err := Extract(bytes.NewBufferString("not a tarball"), &memVisitor{}); err == nil {
		t.Fatal("expected error")
	}
}

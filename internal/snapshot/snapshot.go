// Package snapshot exports and imports the entity namespace as a
// gzip-compressed stream of JSON lines, one entity per line. Snapshots
// exist for backup and migration; the backing store remains the source of
// record.
package snapshot

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/types"
)

// Export writes every /entity file to w. Entities are read through normal
// syscalls so the snapshot observes a consistent point-in-time view under
// the single-threaded model.
func Export(k *kernel.Kernel, w io.Writer) (int, error) {
	ids, errno := k.ReadDir("/entity")
	if !errno.Ok() {
		return 0, fmt.Errorf("list entities: %s", errno)
	}

	zw := gzip.NewWriter(w)
	var written int
	for _, id := range ids {
		fd, errno := k.Open("/entity/"+id, kernel.ModeRead)
		if !errno.Ok() {
			zw.Close()
			return written, fmt.Errorf("open /entity/%s: %s", id, errno)
		}
		ent, errno := k.Read(fd)
		k.Close(fd)
		if !errno.Ok() {
			zw.Close()
			return written, fmt.Errorf("read /entity/%s: %s", id, errno)
		}

		line, err := sonic.Marshal(ent)
		if err != nil {
			zw.Close()
			return written, fmt.Errorf("encode /entity/%s: %w", id, err)
		}
		line = append(line, '\n')
		if _, err := zw.Write(line); err != nil {
			zw.Close()
			return written, fmt.Errorf("write snapshot: %w", err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("finish snapshot: %w", err)
	}
	return written, nil
}

// Import recreates entities from a snapshot stream. Existing paths are
// skipped rather than overwritten; restoring over live
// state is the operator's call to make explicitly by unlinking first.
func Import(k *kernel.Kernel, r io.Reader) (int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var restored int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ent types.Entity
		if err := sonic.Unmarshal(line, &ent); err != nil {
			return restored, fmt.Errorf("decode snapshot line: %w", err)
		}
		if ent.ID == "" {
			return restored, fmt.Errorf("snapshot entity missing id")
		}

		path := "/entity/" + ent.ID
		if k.Exists(path) {
			continue
		}
		if errno := k.Create(path, &ent); !errno.Ok() {
			return restored, fmt.Errorf("create %s: %s", path, errno)
		}
		restored++
	}
	if err := scanner.Err(); err != nil {
		return restored, fmt.Errorf("read snapshot: %w", err)
	}
	return restored, nil
}

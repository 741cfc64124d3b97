package client

import "testing"

func TestChunkRange(t *testing.T) {
	cases := []struct {
		size      uint64
		chunkSize uint32
		want      []copyChunk
	}{
		{0, 1024, nil},
		{1024, 1024, []copyChunk{{offset: 0, length: 1024}}},
		{2000, 1024, []copyChunk{{offset: 0, length: 1024}, {offset: 1024, length: 976}}},
		{3072, 1024, []copyChunk{{offset: 0, length: 1024}, {offset: 1024, length: 1024}, {offset: 2048, length: 1024}}},
	}
	for _, c := range cases {
		got := chunkRange(c.size, c.chunkSize)
		if len(got) != len(c.want) {
			t.Errorf("chunkRange(%d, %d) = %v, want %v", c.size, c.chunkSize, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("chunkRange(%d, %d)[%d] = %+v, want %+v", c.size, c.chunkSize, i, got[i], c.want[i])
			}
		}
	}
}

func TestChunkRange_CoversWholeRange(t *testing.T) {
	const size = uint64(10*1<<20 + 37)
	chunks := chunkRange(size, 1<<20)
	var total uint64
	for i, c := range chunks {
		if c.offset != total {
			t.Fatalf("chunk %d offset = %d, want %d (gap or overlap)", i, c.offset, total)
		}
		total += uint64(c.length)
	}
	if total != size {
		t.Errorf("chunks cover %d bytes, want %d", total, size)
	}
}

func TestCopyOptions_WithDefaults(t *testing.T) {
	o := CopyOptions{}.withDefaults()
	if o.ChunkSize != 1<<20 {
		t.Errorf("default ChunkSize = %d, want %d", o.ChunkSize, 1<<20)
	}
	if o.Workers != 4 {
		t.Errorf("default Workers = %d, want 4", o.Workers)
	}

	custom := CopyOptions{ChunkSize: 4096, Workers: 8}.withDefaults()
	if custom.ChunkSize != 4096 || custom.Workers != 8 {
		t.Errorf("withDefaults() overrode explicit values: %+v", custom)
	}
}

func TestParallelCopy_EmptyFile(t *testing.T) {
	if err := ParallelCopy(nil, nil, nil, 0, CopyOptions{}); err != nil {
		t.Errorf("ParallelCopy() with size 0 error = %v, want nil", err)
	}
}

package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/smb2go/smb2client/wire"
)

// CopyOptions configures the parallel-copy scheduler (spec §4.R).
type CopyOptions struct {
	// ChunkSize is the size of each read/write unit handed to a worker.
	ChunkSize uint32
	// Workers is the size of the per-copy worker pool.
	Workers int
	// Progress, if non-nil, is called after each chunk completes with the
	// cumulative number of bytes copied so far.
	Progress func(done uint64)
}

func (o CopyOptions) withDefaults() CopyOptions {
	if o.ChunkSize == 0 {
		o.ChunkSize = 1 << 20 // 1 MiB
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

type copyChunk struct {
	offset uint64
	length uint32
}

// chunkRange splits [0, size) into ChunkSize pieces, offset-sorted (the
// order workers claim them in, FIFO, per spec §4.R).
func chunkRange(size uint64, chunkSize uint32) []copyChunk {
	var chunks []copyChunk
	for off := uint64(0); off < size; off += uint64(chunkSize) {
		length := uint64(chunkSize)
		if off+length > size {
			length = size - off
		}
		chunks = append(chunks, copyChunk{offset: off, length: uint32(length)})
	}
	return chunks
}

// ParallelCopy reads size bytes from src and writes them to dst using a
// bounded worker pool, each worker claiming the next unclaimed chunk off an
// offset-sorted FIFO queue (spec §4.R). Intended for cross-share or
// cross-server copies where FSCTL_SRV_COPYCHUNK isn't applicable; same-share
// copies should prefer ServerSideCopy.
func ParallelCopy(ctx context.Context, src, dst *Handle, size uint64, opts CopyOptions) error {
	opts = opts.withDefaults()
	chunks := chunkRange(size, opts.ChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	work := make(chan copyChunk, len(chunks))
	for _, c := range chunks {
		work <- c
	}
	close(work)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     uint64
	)
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := opts.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if cctx.Err() != nil {
					return
				}
				if err := copyOneChunk(cctx, src, dst, c); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					return
				}
				total := atomic.AddUint64(&done, uint64(c.length))
				if opts.Progress != nil {
					opts.Progress(total)
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func copyOneChunk(ctx context.Context, src, dst *Handle, c copyChunk) error {
	data, err := src.Read(ctx, c.offset, c.length)
	if err != nil {
		return fmt.Errorf("client: copy: read offset %d: %w", c.offset, err)
	}
	written := uint32(0)
	for written < uint32(len(data)) {
		n, err := dst.Write(ctx, c.offset+uint64(written), data[written:])
		if err != nil {
			return fmt.Errorf("client: copy: write offset %d: %w", c.offset+uint64(written), err)
		}
		if n == 0 {
			return fmt.Errorf("client: copy: write offset %d: %w: zero-length write", c.offset+uint64(written), ErrProtocolDecode)
		}
		written += n
	}
	return nil
}

// ServerSideCopy implements spec §4.R's same-share fast path: request a
// resume key for src, then issue FSCTL_SRV_COPYCHUNK(_WRITE) against dst in
// pieces no larger than maxChunk, letting the server perform the copy
// internally without round-tripping the data through the client.
func ServerSideCopy(ctx context.Context, src, dst *Handle, size uint64, maxChunk uint32) error {
	if maxChunk == 0 {
		maxChunk = 16 << 20 // 16 MiB, a conservative default under typical server limits
	}
	keyResp, err := src.Ioctl(ctx, wire.FsctlSrvRequestResumeKey, nil, 32)
	if err != nil {
		return fmt.Errorf("client: server-side copy: request resume key: %w", err)
	}
	resumeKey, err := wire.DecodeSrvRequestResumeKeyResponse(keyResp.Output)
	if err != nil {
		return fmt.Errorf("client: server-side copy: decode resume key: %w", err)
	}

	for off := uint64(0); off < size; {
		length := uint64(maxChunk)
		if off+length > size {
			length = size - off
		}
		req := &wire.SrvCopychunkCopy{
			SourceKey: resumeKey.ResumeKey,
			Chunks:    []wire.SrvCopychunk{{SourceOffset: off, TargetOffset: off, Length: uint32(length)}},
		}
		out, err := dst.Ioctl(ctx, wire.FsctlSrvCopychunk, req.Encode(), 64)
		if err != nil {
			return fmt.Errorf("client: server-side copy: copychunk at offset %d: %w", off, err)
		}
		resp, err := wire.DecodeSrvCopychunkResponse(out.Output)
		if err != nil {
			return fmt.Errorf("client: server-side copy: decode copychunk response: %w", err)
		}
		if resp.TotalBytesWritten == 0 {
			return fmt.Errorf("client: server-side copy: %w: zero bytes written at offset %d", ErrProtocolDecode, off)
		}
		off += uint64(resp.TotalBytesWritten)
	}
	return nil
}

package streaming

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"streamgate/internal/core/ports"

	"go.uber.org/zap"
)

// FFmpegEngine is the external media engine. Codec work stays inside
// the ffmpeg subprocess; this wrapper only moves bytes.
type FFmpegEngine struct {
	logger *zap.SugaredLogger
}

func NewFFmpegEngine(logger *zap.SugaredLogger) *FFmpegEngine {
	return &FFmpegEngine{logger: logger}
}

// PullFrames connects to the source and emits one JPEG frame per
// callback until ctx is cancelled or the upstream ends. The connect
// attempt is bounded: if no frame arrives within connectTimeout the
// subprocess is killed and an error returned, so one unreachable
// camera cannot block the callers.
func (e *FFmpegEngine) PullFrames(ctx context.Context, sourceURL string, connectTimeout time.Duration, onFrame func(frame []byte) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
	}
	if strings.HasPrefix(sourceURL, "rtsp://") || strings.HasPrefix(sourceURL, "rtsps://") {
		args = append(args,
			"-rtsp_transport", "tcp",
			"-stimeout", fmt.Sprintf("%d", connectTimeout.Microseconds()),
		)
	} else if strings.HasPrefix(sourceURL, "rtmp://") {
		args = append(args,
			"-rw_timeout", fmt.Sprintf("%d", connectTimeout.Microseconds()),
		)
	}
	args = append(args,
		"-i", sourceURL,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			e.logger.Debugw("ffmpeg stderr", "source", sourceURL, "output", scanner.Text())
		}
	}()

	// Kill the subprocess if the first frame does not arrive in time.
	firstFrame := make(chan struct{})
	connectTimer := time.AfterFunc(connectTimeout, func() {
		select {
		case <-firstFrame:
		default:
			cancel()
		}
	})
	defer connectTimer.Stop()

	frameErr := e.readFrames(stdout, func(frame []byte) error {
		select {
		case <-firstFrame:
		default:
			close(firstFrame)
		}
		return onFrame(frame)
	})

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		select {
		case <-firstFrame:
			// Parent cancelled a running pull; normal teardown.
			return ctx.Err()
		default:
			return fmt.Errorf("connect to %s timed out after %s", sourceURL, connectTimeout)
		}
	}
	if frameErr != nil && frameErr != io.EOF {
		return fmt.Errorf("read frames: %w", frameErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg exited: %w", waitErr)
	}
	return nil
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// readFrames splits the mjpeg byte stream on JPEG start/end markers.
func (e *FFmpegEngine) readFrames(r io.Reader, onFrame func([]byte) error) error {
	reader := bufio.NewReaderSize(r, 1<<16)
	var buf bytes.Buffer

	chunk := make([]byte, 32*1024)
	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])

			for {
				data := buf.Bytes()
				start := bytes.Index(data, jpegSOI)
				if start < 0 {
					break
				}
				end := bytes.Index(data[start:], jpegEOI)
				if end < 0 {
					break
				}
				frameEnd := start + end + len(jpegEOI)
				frame := make([]byte, frameEnd-start)
				copy(frame, data[start:frameEnd])
				buf.Next(frameEnd)

				if cbErr := onFrame(frame); cbErr != nil {
					return cbErr
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// PackageClip concatenates staged segment files into one seekable clip
// using stream copy; no re-encoding happens here.
func (e *FFmpegEngine) PackageClip(ctx context.Context, segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to package")
	}

	listFile, err := os.CreateTemp(filepath.Dir(outputPath), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(listFile.Name())

	for _, path := range segmentPaths {
		if _, err := fmt.Fprintf(listFile, "file '%s'\n", path); err != nil {
			listFile.Close()
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	if err := listFile.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg concat failed: %w (%s)", err, bytes.TrimSpace(output))
	}
	return nil
}

var _ ports.MediaEngine = (*FFmpegEngine)(nil)

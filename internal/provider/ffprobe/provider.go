package ffprobe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const (
	providerName = "ffprobe"
	probeTimeout = 15 * time.Second
	probeWorkers = 4
)

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Prober reads technical details of video files with ffprobe.
type Prober struct {
	probe  probeFunc
	logger zerolog.Logger
}

// New creates a prober using the ffprobe binary on PATH.
func New(logger zerolog.Logger) *Prober {
	return &Prober{
		probe:  ffprobe.ProbeURL,
		logger: logger.With().Str("component", providerName).Logger(),
	}
}

// Details returns a short description such as "1080p h264 aac" for path.
func (p *Prober) Details(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeInvalid,
			Message:  "ffprobe requires a non-empty file path",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	data, err := p.probe(ctx, path)
	if err != nil {
		return "", &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeUnknown,
			Message:  fmt.Sprintf("ffprobe failed for %s: %v", path, err),
			Err:      err,
		}
	}
	return describe(data), nil
}

// DetailsAll probes every path concurrently. Files that cannot be probed are
// logged and left out of the result.
func (p *Prober) DetailsAll(ctx context.Context, paths []string) map[string]string {
	var mu sync.Mutex
	out := make(map[string]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeWorkers)
	for _, path := range paths {
		g.Go(func() error {
			details, err := p.Details(gctx, path)
			if err != nil {
				p.logger.Debug().Err(err).Str("path", path).Msg("probe failed")
				return nil
			}
			if details == "" {
				return nil
			}
			mu.Lock()
			out[path] = details
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func describe(data *ffprobe.ProbeData) string {
	if data == nil {
		return ""
	}

	var parts []string
	if video := data.FirstVideoStream(); video != nil {
		if video.Height > 0 {
			parts = append(parts, fmt.Sprintf("%dp", video.Height))
		}
		if codec := pickCodecName(video); codec != "" {
			parts = append(parts, codec)
		}
	}
	if audio := data.FirstAudioStream(); audio != nil {
		if codec := pickCodecName(audio); codec != "" {
			parts = append(parts, codec)
		}
	}
	return strings.Join(parts, " ")
}

func pickCodecName(stream *ffprobe.Stream) string {
	if stream == nil {
		return ""
	}
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}

package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/httpclient"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/id"
)

const progressInterval = 100 * time.Millisecond

// HTTPRepairService fetches <atlas stem>.skel from a mirror into the mod folder.
type HTTPRepairService struct {
	baseURL string
	client  *http.Client
	policy  httpclient.RetryPolicy
	ids     id.Generator
	logger  hclog.Logger

	mu        sync.Mutex
	listeners map[int]func(domain.RepairEvent)
	nextID    int
}

func NewHTTPRepairService(baseURL string, client *http.Client, ids id.Generator, logger hclog.Logger) *HTTPRepairService {
	if client == nil {
		client = httpclient.Default()
	}
	if ids == nil {
		ids = id.UUID{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HTTPRepairService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		policy:    httpclient.DefaultRetryPolicy,
		ids:       ids,
		logger:    logger.Named("repair"),
		listeners: map[int]func(domain.RepairEvent){},
	}
}

func (s *HTTPRepairService) Subscribe(fn func(domain.RepairEvent)) func() {
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.listeners[key] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, key)
		s.mu.Unlock()
	}
}

func (s *HTTPRepairService) StartRepair(ctx context.Context, folder string) error {
	if s.baseURL == "" {
		return domain.NewLoadError(domain.KindDownload, "no repair mirror configured")
	}
	atlas, err := firstAtlas(folder)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(atlas, filepath.Ext(atlas)) + ".skel"
	source := s.baseURL + "/" + name
	dest := filepath.Join(folder, name)
	logger := s.logger.With("repair_id", s.ids.New(), "url", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	req = httpclient.NewRequest(req)
	// Progress is reported against Content-Length.
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := httpclient.DoWithRetry(ctx, s.client, req, s.policy)
	if err != nil {
		return domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewLoadError(domain.KindSkeletonNotFound, fmt.Sprintf("mirror has no %s", name))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.NewLoadError(domain.KindDownload, fmt.Sprintf("mirror returned status %d", resp.StatusCode))
	}

	// Count wire bytes: a mirror may still encode the body, and Content-Length then measures that.
	wire := &countingBody{ReadCloser: resp.Body}
	resp.Body = wire
	body, err := httpclient.Body(resp)
	if err != nil {
		return domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	defer body.Close()
	total := resp.ContentLength

	s.emit(domain.RepairEvent{Kind: domain.RepairStarted, DestinationPath: dest})
	logger.Info("repair download started", "destination", dest, "bytes", total)

	written, err := s.writeFile(body, wire, folder, dest, total)
	if err != nil {
		return domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	s.emit(domain.RepairEvent{Kind: domain.RepairFinished, DestinationPath: dest})
	logger.Info("repair download finished", "destination", dest, "bytes", written)
	return nil
}

// writeFile streams body into a temp file next to dest and renames it into place.
func (s *HTTPRepairService) writeFile(body io.Reader, wire *countingBody, folder, dest string, total int64) (int64, error) {
	tmp, err := os.CreateTemp(folder, filepath.Base(dest)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	progress := rate.Sometimes{Interval: progressInterval}
	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				tmp.Close()
				return written, fmt.Errorf("write temp file: %w", err)
			}
			written += int64(n)
			progress.Do(func() {
				s.emit(domain.RepairEvent{Kind: domain.RepairProgress, BytesDownloaded: wire.n.Load(), TotalBytes: total})
			})
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			tmp.Close()
			return written, fmt.Errorf("read body: %w", readErr)
		}
	}
	// A decoder may stop short of trailing wire bytes.
	_, _ = io.Copy(io.Discard, wire)
	s.emit(domain.RepairEvent{Kind: domain.RepairProgress, BytesDownloaded: wire.n.Load(), TotalBytes: total})
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return written, fmt.Errorf("move into place: %w", err)
	}
	return written, nil
}

type countingBody struct {
	io.ReadCloser
	n atomic.Int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n.Add(int64(n))
	return n, err
}

func (s *HTTPRepairService) emit(ev domain.RepairEvent) {
	s.mu.Lock()
	keys := make([]int, 0, len(s.listeners))
	for k := range s.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(domain.RepairEvent), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.listeners[k])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func firstAtlas(folder string) (string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", domain.NewLoadError(domain.KindDownload, err.Error()).WithCause(err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".atlas") {
			return entry.Name(), nil
		}
	}
	return "", domain.NewLoadError(domain.KindDownload, "folder has no atlas to name the skeleton after")
}

package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/transport"
)

func newAudioServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("not really mpeg frames but enough for a tag"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, s *Service, id int64) *Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := s.GetTaskStatus(id)
		if err != nil {
			t.Fatal(err)
		}
		if task.Status == StatusComplete || task.Status == StatusFailed {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %d never finished", id)
	return nil
}

func TestDownloadWritesTaggedFile(t *testing.T) {
	t.Parallel()

	srv := newAudioServer(t)
	dir := t.TempDir()
	s := NewService(&transport.DirectFetcher{Client: srv.Client()}, dir)
	defer s.Close()

	completed := make(chan Task, 1)
	s.OnComplete = func(task Task) { completed <- task }

	track := models.Track{
		ID:          "abc",
		Artist:      "Nova",
		Title:       "Night/Drive",
		URL:         srv.URL + "/abc.mp3",
		Tags:        []string{"synthwave", "night"},
		Lyrics:      "drive all night",
		PublishedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	task, err := s.CreateDownload(track)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusPending || task.ID != 1 {
		t.Errorf("new task = %+v", task)
	}

	done := waitFor(t, s, task.ID)
	if done.Status != StatusComplete || done.Progress != 100 {
		t.Fatalf("task = %+v", done)
	}
	want := filepath.Join(dir, "Nova - Night_Drive.mp3")
	if done.FilePath != want {
		t.Errorf("FilePath = %q, want %q", done.FilePath, want)
	}

	title, artist, genre, err := ReadTags(want)
	if err != nil {
		t.Fatal(err)
	}
	if title != "Night/Drive" || artist != "Nova" || genre != "synthwave, night" {
		t.Errorf("tags = %q %q %q", title, artist, genre)
	}

	select {
	case got := <-completed:
		if got.Track.FilePath != want {
			t.Errorf("OnComplete track path = %q", got.Track.FilePath)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnComplete never ran")
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".download-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestDownloadFailures(t *testing.T) {
	t.Parallel()

	srv := newAudioServer(t)
	dir := t.TempDir()
	s := NewService(&transport.DirectFetcher{Client: srv.Client()}, dir)

	if _, err := s.CreateDownload(models.Track{ID: "x"}); !errors.Is(err, ErrNoURL) {
		t.Errorf("CreateDownload(no url) error = %v", err)
	}

	task, err := s.CreateDownload(models.Track{ID: "m", Artist: "a", Title: "b", URL: srv.URL + "/missing.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	done := waitFor(t, s, task.ID)
	if done.Status != StatusFailed || done.Error == "" {
		t.Errorf("task = %+v, want failed with an error", done)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("failed download left files: %v", entries)
	}

	if _, err := s.GetTaskStatus(999); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTaskStatus(999) error = %v", err)
	}

	s.Close()
	s.Close()
	if _, err := s.CreateDownload(models.Track{ID: "late", URL: srv.URL + "/late.mp3"}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateDownload after Close error = %v, want ErrClosed", err)
	}
}

// gatedFetcher blocks every fetch until release is closed, then fails it.
type gatedFetcher struct {
	release chan struct{}
}

func (f *gatedFetcher) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return nil, errors.New("offline")
}

func TestCreateDownloadDoesNotBlockOnFullQueue(t *testing.T) {
	t.Parallel()

	gate := &gatedFetcher{release: make(chan struct{})}
	s := NewService(gate, t.TempDir())

	returned := make(chan error, 1)
	go func() {
		// one job may sit in the worker, so the queue overflows within queueSize+2 calls
		for i := range queueSize + 2 {
			if _, err := s.CreateDownload(models.Track{ID: fmt.Sprint(i), URL: "https://cdn.test/x.mp3"}); err != nil {
				returned <- err
				return
			}
		}
		returned <- nil
	}()

	var full error
	select {
	case full = <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("CreateDownload blocked on a full queue")
	}
	if !errors.Is(full, ErrQueueFull) {
		t.Fatalf("CreateDownload error = %v, want ErrQueueFull", full)
	}
	if _, err := s.GetTaskStatus(int64(queueSize + 2)); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("rejected task is still tracked: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	close(gate.release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}

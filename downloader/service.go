// Package downloader : keeps offline copies of tracks
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/transport"
	"cryogon/rizumu-udio/utils"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoURL        = errors.New("track has no playable url")
	ErrClosed       = errors.New("downloader is closed")
	ErrQueueFull    = errors.New("download queue is full")
)

const (
	downloadTimeout = 5 * time.Minute
	queueSize       = 100
)

type Service struct {
	JobQueue chan *Task
	tasks    map[int64]*Task
	mu       sync.Mutex
	nextID   int64

	fetcher transport.Fetcher
	dir     string

	queueMu sync.Mutex
	closed  bool
	done    chan struct{}

	// OnComplete runs on the worker goroutine after a file is written and tagged.
	OnComplete func(task Task)
}

func NewService(fetcher transport.Fetcher, dir string) *Service {
	if fetcher == nil {
		fetcher = &transport.DirectFetcher{Client: utils.HTTPClient}
	}
	s := &Service{
		JobQueue: make(chan *Task, queueSize),
		tasks:    make(map[int64]*Task),
		nextID:   1,
		fetcher:  fetcher,
		dir:      dir,
		done:     make(chan struct{}),
	}

	go s.worker()

	return s
}

func (s *Service) CreateDownload(track models.Track) (*Task, error) {
	if track.URL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoURL, track.ID)
	}

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	s.mu.Lock()
	newTask := &Task{
		ID:     s.nextID,
		Track:  track,
		Status: StatusPending,
	}
	s.nextID++
	s.tasks[newTask.ID] = newTask
	snapshot := *newTask
	s.mu.Unlock()

	// never block here: Close needs queueMu to shut the queue
	select {
	case s.JobQueue <- newTask:
	default:
		s.mu.Lock()
		delete(s.tasks, newTask.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d pending", ErrQueueFull, queueSize)
	}

	log.Printf("[Downloader] Queued %s - %s as task %d", track.Artist, track.Title, snapshot.ID)

	return &snapshot, nil
}

// GetTaskStatus returns a copy of the task.
func (s *Service) GetTaskStatus(id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}

	snapshot := *task
	return &snapshot, nil
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (s *Service) Close() {
	s.queueMu.Lock()
	if s.closed {
		s.queueMu.Unlock()
		return
	}
	s.closed = true
	close(s.JobQueue)
	s.queueMu.Unlock()
	<-s.done
}

func (s *Service) worker() {
	defer close(s.done)
	log.Println("[Worker] Starting up. Ready for jobs.")

	for task := range s.JobQueue {
		log.Printf("[Worker] Picked up job: %d", task.ID)

		s.updateTaskStatus(task.ID, StatusDownloading, 0, "", "")

		path, err := s.runDownloadJob(task)

		if err != nil {
			log.Printf("[Worker] ERROR job %d: %v", task.ID, err)
			s.updateTaskStatus(task.ID, StatusFailed, 0, "", err.Error())
			continue
		}

		log.Printf("[Worker] FINISHED job %d -> %s", task.ID, path)
		s.updateTaskStatus(task.ID, StatusComplete, 100, path, "")

		if s.OnComplete != nil {
			if done, err := s.GetTaskStatus(task.ID); err == nil {
				s.OnComplete(*done)
			}
		}
	}
}

func (s *Service) runDownloadJob(task *Task) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	resp, err := s.fetcher.Do(ctx, &transport.Request{Method: http.MethodGet, URL: task.Track.URL})
	if err != nil {
		return "", fmt.Errorf("fetching audio: %w", err)
	}
	if !resp.OK() {
		return "", &transport.StatusError{StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	s.updateTaskStatus(task.ID, StatusDownloading, 50, "", "")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	name := utils.SafeFilename(fmt.Sprintf("%s - %s", task.Track.Artist, task.Track.Title)) + ".mp3"
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	if err := WriteTags(tmp.Name(), task.Track); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("tagging: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

func (s *Service) updateTaskStatus(id int64, status TaskStatus, progress float64, path, errorMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return
	}

	task.Status = status
	if progress > task.Progress { // Only update if progress > current
		task.Progress = progress
	}
	if path != "" {
		task.FilePath = path
		task.Track.FilePath = path
	}
	if errorMsg != "" {
		task.Error = errorMsg
	}
}

// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package imagewriter persists camera frames as PNG files off the recording
// thread. The queue is unbounded on purpose: applying back-pressure here
// would stall the record loop and skew the temporal alignment of frames,
// while the memory guard already bounds the process as a whole.
package imagewriter

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dorobot/teleop-capture/models/robot"
)

// flushPollInterval is how often WaitFlushed re-checks the per-episode
// counters.
const flushPollInterval = 50 * time.Millisecond

type task struct {
	episode int
	image   robot.Image
	path    string
}

type progress struct {
	queued  int
	written int
	failed  int
}

// Pool writes queued frames to disk with a fixed set of workers. Write
// errors drop the frame and are accounted, so that a later flush wait
// discovers the gap instead of hanging on it.
type Pool struct {
	log   zerolog.Logger
	cfg   Config
	queue *robot.SafeDeque

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mutex    sync.Mutex
	episodes map[int]*progress
}

// NewPool creates an image writer pool and starts its workers.
func NewPool(log zerolog.Logger, options ...Option) *Pool {

	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	p := Pool{
		log:      log.With().Str("component", "image_writer").Logger(),
		cfg:      cfg,
		queue:    robot.NewDeque(),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		episodes: make(map[int]*progress),
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}

	return &p
}

// Enqueue schedules one frame for writing. It never blocks.
func (p *Pool) Enqueue(episode int, img robot.Image, path string) {
	p.mutex.Lock()
	p.episode(episode).queued++
	p.mutex.Unlock()

	p.queue.PushBack(task{episode: episode, image: img, path: path})

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Progress returns the queued, written and failed frame counts for one
// episode.
func (p *Pool) Progress(episode int) (int, int, int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	prog := p.episode(episode)
	return prog.queued, prog.written, prog.failed
}

// WaitFlushed blocks until the given number of frames of the episode have
// been written. It fails early when dropped frames make the target
// unreachable, and with ErrImageFlushTimeout when the deadline passes first.
func (p *Pool) WaitFlushed(episode int, expected int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, written, failed := p.Progress(episode)
		if written >= expected {
			return nil
		}
		if failed > 0 && written+failed >= expected {
			return fmt.Errorf("episode %d dropped %d frames during flush", episode, failed)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("episode %d flushed %d of %d frames: %w",
				episode, written, expected, robot.ErrImageFlushTimeout)
		}
		time.Sleep(flushPollInterval)
	}
}

// Forget releases the accounting of an episode whose save has concluded.
func (p *Pool) Forget(episode int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.episodes, episode)
}

// Stop drains the queue and stops the workers.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

// episode returns the progress record for an episode. Must be called with
// the mutex held.
func (p *Pool) episode(index int) *progress {
	prog, ok := p.episodes[index]
	if !ok {
		prog = &progress{}
		p.episodes[index] = prog
	}
	return prog
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		v := p.queue.PopFront()
		if v == nil {
			select {
			case <-p.done:
				if p.queue.Len() == 0 {
					return
				}
			case <-p.notify:
			case <-time.After(flushPollInterval):
			}
			continue
		}

		t := v.(task)
		err := p.write(t)

		p.mutex.Lock()
		prog := p.episode(t.episode)
		if err != nil {
			prog.failed++
		} else {
			prog.written++
		}
		p.mutex.Unlock()

		if err != nil {
			p.log.Error().Err(err).
				Int("episode", t.episode).
				Str("path", t.path).
				Msg("could not write frame, dropping")
		}
	}
}

func (p *Pool) write(t task) error {

	img := t.image
	if len(img.Pixels) != img.Width*img.Height*3 {
		return fmt.Errorf("frame has %d pixel bytes, expected %d",
			len(img.Pixels), img.Width*img.Height*3)
	}

	err := os.MkdirAll(filepath.Dir(t.path), 0755)
	if err != nil {
		return fmt.Errorf("could not create frame directory: %w", err)
	}

	file, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("could not create frame file: %w", err)
	}
	defer file.Close()

	err = png.Encode(file, toNRGBA(img))
	if err != nil {
		return fmt.Errorf("could not encode frame: %w", err)
	}

	err = file.Sync()
	if err != nil {
		return fmt.Errorf("could not sync frame file: %w", err)
	}

	return nil
}

// toNRGBA expands the packed RGB pixel buffer into the representation the
// PNG encoder consumes.
func toNRGBA(img robot.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			src := (y*img.Width + x) * 3
			dst := y*out.Stride + x*4
			out.Pix[dst+0] = img.Pixels[src+0]
			out.Pix[dst+1] = img.Pixels[src+1]
			out.Pix[dst+2] = img.Pixels[src+2]
			out.Pix[dst+3] = 0xFF
		}
	}
	return out
}

package player

import (
	"log"
	"time"
)

// LoopSection replays [s.Start, s.End] until cancelled or until s.Repetitions crossings of End.
// If the position is outside the section it jumps to Start right away.
func (c *Controller) LoopSection(s Section) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ErrNotLoaded
	}

	c.cancelSectionLocked()
	c.handle.SetLoop(false)

	sec := s
	c.section = &sec
	c.crossings = 0
	if pos := c.handle.CurrentTime(); pos < s.Start || pos > s.End {
		c.handle.SetCurrentTime(s.Start)
	}

	stop := make(chan struct{})
	c.loopStop = stop
	go c.pollSection(stop)

	log.Printf("[Player] Looping %s-%s (repetitions %d)", s.Start, s.End, s.Repetitions)
	return nil
}

// CancelLoopSection stops the poller and discards the section.
func (c *Controller) CancelLoopSection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelSectionLocked()
}

func (c *Controller) cancelSectionLocked() {
	if c.loopStop != nil {
		close(c.loopStop)
		c.loopStop = nil
	}
	c.section = nil
	c.crossings = 0
}

func (c *Controller) pollSection(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.checkSection(stop) {
				return
			}
		}
	}
}

// checkSection runs one poll for the poller owning stop and reports whether it should keep going.
func (c *Controller) checkSection(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loopStop != stop || c.section == nil || c.handle == nil {
		return false
	}
	pos := c.handle.CurrentTime()
	if pos < c.section.End {
		return true
	}

	// a section ending at the track's end finds the handle stopped there
	ended := c.handle.Paused() && pos >= c.handle.Duration()
	c.handle.SetCurrentTime(c.section.Start)
	if ended {
		if err := c.handle.Play(); err != nil {
			log.Printf("[Player] Restarting section: %v", err)
		}
	}
	if c.section.Repetitions == 0 {
		return true
	}

	c.crossings++
	if c.crossings < c.section.Repetitions {
		return true
	}

	log.Printf("[Player] Section loop finished after %d repetitions", c.crossings)
	c.cancelSectionLocked()
	return false
}

// tick runs one poll for the active section, if any.
func (c *Controller) tick() bool {
	c.mu.Lock()
	stop := c.loopStop
	c.mu.Unlock()
	if stop == nil {
		return false
	}
	return c.checkSection(stop)
}

// Package schedule runs monitoring cycles on a fixed daily time table.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/logging"
	"github.com/juststeveking/lookout/internal/monitor"
	"github.com/robfig/cron/v3"
)

// Runner performs one monitoring cycle
type Runner interface {
	RunOnce(ctx context.Context) monitor.Outcome
}

// EventType identifies a scheduler event
type EventType string

const (
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
	EventSkipped  EventType = "skipped"
)

// Event is emitted around every cycle. Outcome is set for EventFinished.
type Event struct {
	Type    EventType
	Time    time.Time
	Outcome *monitor.Outcome
}

// Slot is a daily wall-clock time
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// Spec returns the cron expression firing daily at the slot
func (s Slot) Spec() string {
	return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
}

// On returns the slot's time on the day of t, in t's location
func (s Slot) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), s.Hour, s.Minute, 0, 0, t.Location())
}

// ParseTimes parses "HH:MM" strings into sorted slots. Empty lists and
// duplicates are rejected.
func ParseTimes(times []string) ([]Slot, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("schedule has no times")
	}

	seen := make(map[Slot]bool, len(times))
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		hour, minute, err := config.ParseClock(t)
		if err != nil {
			return nil, err
		}
		slot := Slot{Hour: hour, Minute: minute}
		if seen[slot] {
			return nil, fmt.Errorf("duplicate schedule time %s", slot)
		}
		seen[slot] = true
		slots = append(slots, slot)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Hour != slots[j].Hour {
			return slots[i].Hour < slots[j].Hour
		}
		return slots[i].Minute < slots[j].Minute
	})
	return slots, nil
}

// NextSlot returns the first slot strictly after now, wrapping to tomorrow
func NextSlot(slots []Slot, now time.Time) (Slot, time.Time) {
	for _, s := range slots {
		if at := s.On(now); at.After(now) {
			return s, at
		}
	}
	first := slots[0]
	return first, first.On(now.AddDate(0, 0, 1))
}

// Scheduler fires the runner at every slot. Runs never overlap: a slot that
// comes due while a cycle is still running is skipped.
type Scheduler struct {
	cron       *cron.Cron
	job        cron.Job
	runner     Runner
	slots      []Slot
	runOnStart bool
	log        *logging.Logger
	events     chan Event

	mu      sync.Mutex
	ctx     context.Context
	running bool
	last    *monitor.Outcome
	wg      sync.WaitGroup
}

// New creates a scheduler for the given "HH:MM" times
func New(runner Runner, times []string, runOnStart bool, log *logging.Logger) (*Scheduler, error) {
	slots, err := ParseTimes(times)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}

	s := &Scheduler{
		runner:     runner,
		slots:      slots,
		runOnStart: runOnStart,
		log:        log,
		events:     make(chan Event, 64),
		ctx:        context.Background(),
	}

	logger := &cronLogger{s: s}
	s.cron = cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))

	// A single wrapped job is shared by every slot and by Trigger so the
	// skip guard covers all of them.
	s.job = cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(s.run))

	for _, slot := range slots {
		if _, err := s.cron.AddJob(slot.Spec(), s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", slot, err)
		}
	}

	return s, nil
}

// Start begins firing slots. Cycles started from now on use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.log.Infof("Scheduler started with %d daily runs", len(s.slots))
	_, next := NextSlot(s.slots, time.Now())
	s.log.Infof("Next scheduled run: %s", next.Format(monitor.TimeLayout))

	if s.runOnStart {
		s.log.Infof("Running initial check...")
		s.Trigger()
	}
}

// Stop stops firing slots and waits for a running cycle to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Infof("Scheduler stopped")
}

// Trigger runs a cycle now, in the background
func (s *Scheduler) Trigger() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
}

// Events returns the event stream. Events are dropped when nobody reads.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Slots returns the sorted daily time table
func (s *Scheduler) Slots() []Slot {
	return s.slots
}

// Next returns the next slot after now
func (s *Scheduler) Next(now time.Time) (Slot, time.Time) {
	return NextSlot(s.slots, now)
}

// Running reports whether a cycle is in progress
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the most recent outcome, or nil before the first run
func (s *Scheduler) Last() *monitor.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.running = true
	s.mu.Unlock()

	s.emit(Event{Type: EventStarted, Time: time.Now()})

	out := s.runner.RunOnce(ctx)

	s.mu.Lock()
	s.running = false
	s.last = &out
	s.mu.Unlock()

	s.emit(Event{Type: EventFinished, Time: time.Now(), Outcome: &out})

	_, next := NextSlot(s.slots, time.Now())
	s.log.Infof("Next scheduled run: %s", next.Format(monitor.TimeLayout))
}

func (s *Scheduler) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// cronLogger adapts the event log to cron.Logger
type cronLogger struct {
	s *Scheduler
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.log.Warnf("Previous check still running, skipping this run")
		l.s.emit(Event{Type: EventSkipped, Time: time.Now()})
	}
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.log.Errorf("Scheduler %s: %v %v", msg, err, keysAndValues)
}

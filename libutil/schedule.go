package libutil

import "time"

type interval struct {
	every time.Duration
	next  time.Time
	fn    func()
}

// Scheduler runs periodic jobs on the thread that calls Run.
// The render loop calls Run once per frame, so jobs never overlap with
// each other or with GPU work issued from the same thread.
type Scheduler struct {
	jobs []*interval
	now  func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

// Every registers fn to run every d, starting d from now.
func (s *Scheduler) Every(d time.Duration, fn func()) {
	if d <= 0 {
		panic("libutil: non-positive interval")
	}
	s.jobs = append(s.jobs, &interval{
		every: d,
		next:  s.now().Add(d),
		fn:    fn,
	})
}

// Run executes every job that is due at now and returns how many ran.
// A job that fell behind by several periods runs once.
func (s *Scheduler) Run(now time.Time) int {
	ran := 0
	for _, job := range s.jobs {
		if now.Before(job.next) {
			continue
		}
		job.fn()
		ran++
		job.next = job.next.Add(job.every)
		if !job.next.After(now) {
			job.next = now.Add(job.every)
		}
	}
	return ran
}

// Tick is Run at the current time.
func (s *Scheduler) Tick() int {
	return s.Run(s.now())
}

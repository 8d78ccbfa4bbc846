package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"workforce_backend/internal/logger"
)

// retryDelay - пауза, если cron не смог посчитать следующий тик
const retryDelay = 30 * time.Second

// Job - фоновая задача по cron-расписанию
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler запускает задачи по расписанию, каждая в своей горутине
type Scheduler struct {
	jobs  []Job
	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type Option func(*Scheduler)

// WithClock подменяет источник времени и таймер (тесты)
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:   func() time.Time { return time.Now().UTC() },
		after: time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add регистрирует задачу; расписание проверяется сразу
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no run func", job.Name)
	}
	if !gronx.IsValid(job.Schedule) {
		return fmt.Errorf("invalid cron expression for job %q: %s", job.Name, job.Schedule)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already started, cannot add job %q", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start запускает все зарегистрированные задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop отменяет задачи и ждет завершения текущих запусков
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("scheduler stopped")
}

// RunNow выполняет задачу по имени вне расписания
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var found *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("unknown job: %s", name)
	}
	return s.execute(ctx, *found)
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	for {
		next, err := gronx.NextTickAfter(job.Schedule, s.now(), false)
		if err != nil {
			logger.WorkerLog(job.Name, "next_tick", err, "schedule", job.Schedule)
			select {
			case <-s.after(retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.after(next.Sub(s.now())):
			_ = s.execute(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Run(ctx)
	logger.WorkerLog(job.Name, "run", err, "duration", time.Since(start).String())
	return err
}

package persist

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/remote"
)

// MsgPushFailed is raised once per run of failed pushes.
const MsgPushFailed = "Could not save your changes to the server. They are kept locally."

// pushTimeout bounds a single job, including the calls it makes.
const pushTimeout = 30 * time.Second

// JobKind identifies a remote mutation.
type JobKind int

const (
	JobCreateBoard JobKind = iota
	JobRenameBoard
	JobDeleteBoard
	JobCreateList
	JobRenameList
	JobDeleteList
	JobCreateTask
	JobUpdateTask
	JobDeleteTask
	JobSyncOrder
	jobBarrier
)

var jobKindNames = map[JobKind]string{
	JobCreateBoard: "create board",
	JobRenameBoard: "rename board",
	JobDeleteBoard: "delete board",
	JobCreateList:  "create list",
	JobRenameList:  "rename list",
	JobDeleteList:  "delete list",
	JobCreateTask:  "create task",
	JobUpdateTask:  "update task",
	JobDeleteTask:  "delete task",
	JobSyncOrder:   "sync list order",
	jobBarrier:     "barrier",
}

func (k JobKind) String() string {
	if s, ok := jobKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("JobKind(%d)", int(k))
}

// Job is one mutation to replay on the server. Ids are model ids; the
// pusher maps locally created ids to the server ids learnt when it
// created them.
type Job struct {
	Kind JobKind

	// ID is the board, list or task the job acts on.
	ID string

	// ParentID is the owning board (lists) or list (tasks, order sync).
	ParentID string

	// Name is the board name or list title.
	Name string

	// Task carries the full task for create and update.
	Task model.Task

	// Position is the index of a new list or task.
	Position int

	// Order is the full task order of ParentID for JobSyncOrder.
	Order []string

	done chan struct{}
}

// PushResult reports how a job ended.
type PushResult struct {
	Job     Job
	Skipped bool
	Err     error
}

// Pusher replays mutations on the server from a single goroutine so that
// pushes reach the server in the order they were made.
type Pusher struct {
	remote Remote
	log    *log.Logger

	mu      sync.Mutex
	queue   []Job
	running bool
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc

	resultCh chan PushResult
	noteCh   chan model.Notification

	// Owned by the worker goroutine.
	aliases   map[string]int64
	projectID int64
	failing   bool
}

// NewPusher creates a stopped pusher.
func NewPusher(r Remote, logger *log.Logger) *Pusher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pusher{
		remote:   r,
		log:      logger,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		resultCh: make(chan PushResult, 64),
		noteCh:   make(chan model.Notification, 16),
		aliases:  make(map[string]int64),
	}
}

// Start launches the worker. Calling it twice is a no-op.
func (p *Pusher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// Stop abandons queued jobs, cancels the job in flight and waits for the
// worker to exit.
func (p *Pusher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh
}

// Enqueue appends a job. It never blocks and never drops a job.
func (p *Pusher) Enqueue(job Job) {
	p.mu.Lock()
	p.queue = append(p.queue, job)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every job enqueued before the call has been handled.
func (p *Pusher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	p.Enqueue(Job{Kind: jobBarrier, done: done})
	select {
	case <-done:
		return nil
	case <-p.stopCh:
		return fmt.Errorf("pusher stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results delivers the outcome of every job. Results are dropped when
// nobody reads them.
func (p *Pusher) Results() <-chan PushResult {
	return p.resultCh
}

// Notifications delivers user-facing push failures.
func (p *Pusher) Notifications() <-chan model.Notification {
	return p.noteCh
}

func (p *Pusher) run(ctx context.Context) {
	defer close(p.doneCh)
	for {
		job, ok := p.next()
		if !ok {
			select {
			case <-p.stopCh:
				return
			case <-p.wake:
				continue
			}
		}
		select {
		case <-p.stopCh:
			return
		default:
		}
		p.handle(ctx, job)
	}
}

func (p *Pusher) next() (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return Job{}, false
	}
	job := p.queue[0]
	p.queue = p.queue[1:]
	return job, true
}

func (p *Pusher) handle(ctx context.Context, job Job) {
	if job.Kind == jobBarrier {
		close(job.done)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	skipped, err := p.push(jobCtx, job)
	switch {
	case err != nil:
		p.log.Error("pushing change", "job", job.Kind, "id", job.ID, "err", err)
		if !p.failing {
			p.failing = true
			p.sendNote(model.Notification{Level: model.LevelError, Message: MsgPushFailed, CreatedAt: time.Now()})
		}
	case skipped:
		p.log.Debug("skipping change unknown to server", "job", job.Kind, "id", job.ID)
	default:
		p.failing = false
	}
	p.sendResult(PushResult{Job: job, Skipped: skipped, Err: err})
}

// push performs one job. It reports skipped when the job refers to an
// entity the server has never seen.
func (p *Pusher) push(ctx context.Context, job Job) (skipped bool, err error) {
	switch job.Kind {
	case JobCreateBoard:
		projectID, err := p.project(ctx)
		if err != nil {
			return false, err
		}
		b, err := p.remote.CreateBoard(ctx, job.Name, projectID)
		if err != nil {
			return false, err
		}
		p.aliases[job.ID] = b.ID
		return false, nil

	case JobRenameBoard:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.RenameBoard(ctx, id, job.Name)

	case JobDeleteBoard:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.DeleteBoard(ctx, id)

	case JobCreateList:
		boardID, ok := p.resolve(job.ParentID)
		if !ok {
			return true, nil
		}
		l, err := p.remote.CreateList(ctx, job.Name, boardID, job.Position)
		if err != nil {
			return false, err
		}
		p.aliases[job.ID] = l.ID
		return false, nil

	case JobRenameList:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.RenameList(ctx, id, job.Name)

	case JobDeleteList:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.DeleteList(ctx, id)

	case JobCreateTask:
		listID, ok := p.resolve(job.ParentID)
		if !ok {
			return true, nil
		}
		card, err := p.remote.CreateCard(ctx, remote.CardInputFromTask(job.Task, listID, job.Position))
		if err != nil {
			return false, err
		}
		p.aliases[job.ID] = card.ID
		return false, nil

	case JobUpdateTask:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.UpdateCard(ctx, id, taskPatch(job.Task))

	case JobDeleteTask:
		id, ok := p.resolve(job.ID)
		if !ok {
			return true, nil
		}
		return false, p.remote.DeleteCard(ctx, id)

	case JobSyncOrder:
		listID, ok := p.resolve(job.ParentID)
		if !ok {
			return true, nil
		}
		for i, taskID := range job.Order {
			id, ok := p.resolve(taskID)
			if !ok {
				continue
			}
			pos := i
			if err := p.remote.UpdateCard(ctx, id, remote.CardPatch{List: &listID, Position: &pos}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown job kind %v", job.Kind)
}

// project returns the server project new boards go into, reusing the
// first existing one.
func (p *Pusher) project(ctx context.Context) (int64, error) {
	if p.projectID != 0 {
		return p.projectID, nil
	}
	projects, err := p.remote.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(projects) > 0 {
		p.projectID = projects[0].ID
		return p.projectID, nil
	}
	project, err := p.remote.CreateProject(ctx, StarterProjectName)
	if err != nil {
		return 0, err
	}
	p.projectID = project.ID
	return p.projectID, nil
}

func (p *Pusher) resolve(id string) (int64, bool) {
	if n, ok := p.aliases[id]; ok {
		return n, true
	}
	return remote.ParseID(id)
}

// taskPatch sends every editable field. A cleared due date is not sent.
func taskPatch(t model.Task) remote.CardPatch {
	title := t.Content
	desc := t.Description
	prio := string(t.Priority)
	patch := remote.CardPatch{
		Title:       &title,
		Description: &desc,
		Priority:    &prio,
	}
	if t.DueDate != nil {
		due := model.FormatDate(t.DueDate)
		patch.DueDate = &due
	}
	return patch
}

// sendResult sends a PushResult without blocking.
func (p *Pusher) sendResult(r PushResult) {
	select {
	case p.resultCh <- r:
	default:
	}
}

func (p *Pusher) sendNote(n model.Notification) {
	select {
	case p.noteCh <- n:
	default:
	}
}

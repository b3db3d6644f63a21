package task

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cjeanneret/svlabel/internal/debug"
)

var (
	// ErrRegionNotLoaded is returned for regions whose tasks were never stored.
	ErrRegionNotLoaded = errors.New("task: region not loaded")
	// ErrNoTasks is returned when a region has nothing left to audit.
	ErrNoTasks = errors.New("task: no incomplete tasks")
)

// DefaultConnectThresholdKm is the endpoint distance under which two street edges connect.
const DefaultConnectThresholdKm = 0.01

// Container stores tasks per region and sequences the auditing route.
type Container struct {
	mu       sync.Mutex
	byRegion map[int][]*Task
	previous []*Task
	current  *Task
	intn     func(n int) int
}

// Option configures a Container.
type Option func(*Container)

// WithRand makes task selection use r (for reproducible routes).
func WithRand(r *rand.Rand) Option {
	return func(c *Container) {
		c.intn = r.IntN
	}
}

// NewContainer creates an empty task container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		byRegion: make(map[int][]*Task),
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store adds a task to its region, ignoring street edges already stored there.
// It reports whether the task was added.
func (c *Container) Store(t *Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.byRegion[t.RegionID()] {
		if existing.StreetEdgeID() == t.StreetEdgeID() {
			return false
		}
	}
	c.byRegion[t.RegionID()] = append(c.byRegion[t.RegionID()], t)
	return true
}

// Regions returns the loaded region IDs.
func (c *Container) Regions() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.byRegion))
	for id := range c.byRegion {
		out = append(out, id)
	}
	return out
}

// TasksInRegion returns every task of a region.
func (c *Container) TasksInRegion(regionID int) ([]*Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasksLocked(regionID)
}

func (c *Container) tasksLocked(regionID int) ([]*Task, error) {
	tasks, ok := c.byRegion[regionID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRegionNotLoaded, regionID)
	}
	return append([]*Task(nil), tasks...), nil
}

func (c *Container) filter(regionID int, completed bool) ([]*Task, error) {
	tasks, err := c.TasksInRegion(regionID)
	if err != nil {
		return nil, err
	}
	var out []*Task
	for _, t := range tasks {
		if t.IsCompleted() == completed {
			out = append(out, t)
		}
	}
	return out, nil
}

// Completed returns the audited tasks of a region.
func (c *Container) Completed(regionID int) ([]*Task, error) {
	return c.filter(regionID, true)
}

// Incomplete returns the tasks of a region still to audit.
func (c *Container) Incomplete(regionID int) ([]*Task, error) {
	return c.filter(regionID, false)
}

// FindConnected returns the incomplete tasks of a region connected to t.
// With a nil t it returns all incomplete tasks in random order.
func (c *Container) FindConnected(regionID int, t *Task, thresholdKm float64) ([]*Task, error) {
	if thresholdKm <= 0 {
		thresholdKm = DefaultConnectThresholdKm
	}
	tasks, err := c.Incomplete(regionID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		c.shuffle(tasks)
		return tasks, nil
	}
	var out []*Task
	for _, candidate := range tasks {
		if candidate.StreetEdgeID() == t.StreetEdgeID() {
			continue
		}
		if t.IsConnectedTo(candidate, thresholdKm) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func sumLength(tasks []*Task) float64 {
	var km float64
	for _, t := range tasks {
		km += t.Length()
	}
	return km
}

// CompletedDistance returns the audited street length of a region in km.
func (c *Container) CompletedDistance(regionID int) (float64, error) {
	tasks, err := c.Completed(regionID)
	if err != nil {
		return 0, err
	}
	return sumLength(tasks), nil
}

// IncompleteDistance returns the street length of a region left to audit in km.
func (c *Container) IncompleteDistance(regionID int) (float64, error) {
	tasks, err := c.Incomplete(regionID)
	if err != nil {
		return 0, err
	}
	return sumLength(tasks), nil
}

// TotalDistance returns the street length of a region in km.
func (c *Container) TotalDistance(regionID int) (float64, error) {
	tasks, err := c.TasksInRegion(regionID)
	if err != nil {
		return 0, err
	}
	return sumLength(tasks), nil
}

// NextTask picks the task to audit after current: a random incomplete task
// connected to current if there is one, otherwise any random incomplete task.
// When current is set, the next task is oriented to start near current's end.
func (c *Container) NextTask(regionID int, current *Task, thresholdKm float64) (*Task, error) {
	candidates, err := c.FindConnected(regionID, current, thresholdKm)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		if candidates, err = c.Incomplete(regionID); err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w in region %d", ErrNoTasks, regionID)
	}

	next := candidates[c.pick(len(candidates))]
	if current != nil {
		end := current.LastCoordinate()
		next.ReverseIfCloserToEnd(end.Lat(), end.Lon())
	}
	debug.Live("Next task: street edge %d (%d candidates)", next.StreetEdgeID(), len(candidates))
	return next, nil
}

// EndTask marks t completed, in its region store too, and records it as a previous task.
func (c *Container) EndTask(t *Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks, err := c.tasksLocked(t.RegionID())
	if err != nil {
		return err
	}
	t.Complete()
	for _, stored := range tasks {
		if stored.StreetEdgeID() == t.StreetEdgeID() {
			stored.Complete()
		}
	}
	seen := false
	for _, p := range c.previous {
		if p == t {
			seen = true
			break
		}
	}
	if !seen {
		c.previous = append(c.previous, t)
	}
	debug.Info("Task ended: street edge %d", t.StreetEdgeID())
	return nil
}

// SetCurrentTask sets the task being audited.
func (c *Container) SetCurrentTask(t *Task) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// CurrentTask returns the task being audited, or nil.
func (c *Container) CurrentTask() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// PreviousTasks returns the tasks ended in this session.
func (c *Container) PreviousTasks() []*Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Task(nil), c.previous...)
}

// IsFirstTask reports whether no task was ended yet in this session.
func (c *Container) IsFirstTask() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.previous) == 0
}

func (c *Container) pick(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intn(n)
}

func (c *Container) shuffle(tasks []*Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(tasks) - 1; i > 0; i-- {
		j := c.intn(i + 1)
		tasks[i], tasks[j] = tasks[j], tasks[i]
	}
}

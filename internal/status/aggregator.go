// Package status computes read-only reporting views over the
// coordination state: overview, health checks, metric breakdowns, and
// annotated per-entity listings. Nothing here is cached; every view is
// computed on demand from current store contents.
package status

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/coord"
)

// Thresholds for health checks.
const (
	heapUsedFraction = 0.9
	workflowWarnAt   = 100
	taskWarnAt       = 1000
	overdueAfter     = 2 * time.Hour
)

// Aggregator derives status views from the coordination state.
type Aggregator struct {
	state   *coord.State
	started time.Time
	proc    *process.Process
	logger  *zap.Logger
}

// New creates an aggregator. Process-level stats degrade to zero values
// when the platform process handle is unavailable.
func New(state *coord.State, logger *zap.Logger) *Aggregator {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("process stats unavailable", zap.Error(err))
	}
	return &Aggregator{
		state:   state,
		started: time.Now(),
		proc:    proc,
		logger:  logger,
	}
}

// MemoryUsage describes process and heap memory.
type MemoryUsage struct {
	HeapUsed   uint64  `json:"heap_used"`
	HeapTotal  uint64  `json:"heap_total"`
	RSS        uint64  `json:"rss"`
	SystemUsed float64 `json:"system_used_percent"`
}

// Overview is the top-level status view.
type Overview struct {
	Service         string      `json:"service"`
	PID             int         `json:"pid"`
	UptimeSeconds   float64     `json:"uptime_seconds"`
	Memory          MemoryUsage `json:"memory"`
	ActiveWorkflows int         `json:"active_workflows"`
	TotalTasks      int         `json:"total_tasks"`
	ActiveAgents    int         `json:"active_agents"`
	TasksInFlight   int         `json:"tasks_in_flight"`
}

// Overview returns process identity plus store counts. "In flight"
// means assigned or in_progress.
func (a *Aggregator) Overview() Overview {
	workflows := a.state.ListWorkflows()
	tasks := a.state.ListTasks(coord.TaskFilter{})
	agents := a.state.ListAgents()

	active := 0
	for _, w := range workflows {
		if w.Status != coord.WorkflowCompleted {
			active++
		}
	}
	activeAgents := 0
	for _, ag := range agents {
		if ag.Status == coord.AgentActive || ag.Status == coord.AgentBusy {
			activeAgents++
		}
	}
	inFlight := 0
	for _, t := range tasks {
		if t.Status == coord.TaskAssigned || t.Status == coord.TaskInProgress {
			inFlight++
		}
	}

	return Overview{
		Service:         "sparc-coordination",
		PID:             os.Getpid(),
		UptimeSeconds:   time.Since(a.started).Seconds(),
		Memory:          a.memory(),
		ActiveWorkflows: active,
		TotalTasks:      len(tasks),
		ActiveAgents:    activeAgents,
		TasksInFlight:   inFlight,
	}
}

func (a *Aggregator) memory() MemoryUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	usage := MemoryUsage{HeapUsed: ms.HeapAlloc, HeapTotal: ms.HeapSys}
	if a.proc != nil {
		if mi, err := a.proc.MemoryInfo(); err == nil {
			usage.RSS = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		usage.SystemUsed = vm.UsedPercent
	}
	return usage
}

// Check is a single named health check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"` // pass | warn | fail
	Detail string `json:"detail,omitempty"`
}

// Health is the structured health view. Overall status is "unhealthy"
// if any check fails, "degraded" if any warns, otherwise "healthy".
type Health struct {
	Status string  `json:"status"`
	Checks []Check `json:"checks"`
}

// Health runs the health checks against current store contents.
func (a *Aggregator) Health() Health {
	workflows, tasks, agents, _ := a.state.Counts()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	checks := []Check{
		memoryCheck(ms.HeapAlloc, ms.HeapSys),
		countCheck("workflows", workflows, workflowWarnAt),
		{Name: "agents", Status: "pass", Detail: countDetail(agents)},
		countCheck("tasks", tasks, taskWarnAt),
	}

	overall := "healthy"
	for _, c := range checks {
		if c.Status == "fail" {
			overall = "unhealthy"
			break
		}
		if c.Status == "warn" {
			overall = "degraded"
		}
	}
	return Health{Status: overall, Checks: checks}
}

func memoryCheck(used, total uint64) Check {
	c := Check{Name: "memory", Status: "pass"}
	if total > 0 && float64(used) >= heapUsedFraction*float64(total) {
		c.Status = "fail"
		c.Detail = "heap usage above 90%"
	}
	return c
}

func countCheck(name string, n, warnAt int) Check {
	c := Check{Name: name, Status: "pass", Detail: countDetail(n)}
	if n >= warnAt {
		c.Status = "warn"
	}
	return c
}

func countDetail(n int) string {
	return strconv.Itoa(n) + " registered"
}

// Metrics breaks workflows, tasks, and agents down by their categorical
// fields, plus raw process figures.
type Metrics struct {
	Workflows struct {
		ByStatus map[string]int `json:"by_status"`
		ByType   map[string]int `json:"by_type"`
	} `json:"workflows"`
	Tasks struct {
		ByStatus   map[string]int `json:"by_status"`
		ByPhase    map[string]int `json:"by_phase"`
		ByPriority map[string]int `json:"by_priority"`
	} `json:"tasks"`
	Agents struct {
		ByStatus map[string]int `json:"by_status"`
		ByType   map[string]int `json:"by_type"`
	} `json:"agents"`
	Memory        MemoryUsage `json:"memory"`
	CPUPercent    float64     `json:"cpu_percent"`
	UptimeSeconds float64     `json:"uptime_seconds"`
}

// Metrics computes the categorical breakdowns.
func (a *Aggregator) Metrics() Metrics {
	var m Metrics
	m.Workflows.ByStatus = map[string]int{}
	m.Workflows.ByType = map[string]int{}
	m.Tasks.ByStatus = map[string]int{}
	m.Tasks.ByPhase = map[string]int{}
	m.Tasks.ByPriority = map[string]int{}
	m.Agents.ByStatus = map[string]int{}
	m.Agents.ByType = map[string]int{}

	for _, w := range a.state.ListWorkflows() {
		m.Workflows.ByStatus[string(w.Status)]++
		if w.Type != "" {
			m.Workflows.ByType[w.Type]++
		}
	}
	for _, t := range a.state.ListTasks(coord.TaskFilter{}) {
		m.Tasks.ByStatus[string(t.Status)]++
		m.Tasks.ByPhase[t.Phase]++
		m.Tasks.ByPriority[string(t.Priority)]++
	}
	for _, ag := range a.state.ListAgents() {
		m.Agents.ByStatus[string(ag.Status)]++
		m.Agents.ByType[ag.Type]++
	}

	m.Memory = a.memory()
	if a.proc != nil {
		if pct, err := a.proc.CPUPercent(); err == nil {
			m.CPUPercent = pct
		}
	}
	m.UptimeSeconds = time.Since(a.started).Seconds()
	return m
}

// Performance holds derived throughput figures. These are illustrative:
// computed from stored records, not measured from live traffic.
type Performance struct {
	AvgTaskDurationMS float64 `json:"avg_task_duration_ms"`
	ReportsLastMinute int     `json:"reports_last_minute"`
	ErrorRate         float64 `json:"error_rate"`
}

// Performance derives figures from completed/failed tasks and recent
// progress reports.
func (a *Aggregator) Performance() Performance {
	var p Performance

	tasks := a.state.ListTasks(coord.TaskFilter{})
	var totalMS float64
	var completed, failed int
	for _, t := range tasks {
		switch t.Status {
		case coord.TaskCompleted:
			completed++
			if t.StartedAt != nil && t.CompletedAt != nil {
				totalMS += float64(t.CompletedAt.Sub(*t.StartedAt).Milliseconds())
			}
		case coord.TaskFailed:
			failed++
		}
	}
	if completed > 0 {
		p.AvgTaskDurationMS = totalMS / float64(completed)
	}
	if len(tasks) > 0 {
		p.ErrorRate = float64(failed) / float64(len(tasks))
	}

	cutoff := time.Now().Add(-time.Minute)
	for _, m := range a.state.Messages(coord.MessageFilter{Type: coord.MessageProgressReport}) {
		if m.Timestamp.Before(cutoff) {
			break
		}
		p.ReportsLastMinute++
	}
	return p
}

// TaskView annotates a task with computed duration and overdue fields.
type TaskView struct {
	*coord.Task
	DurationMinutes float64 `json:"duration_minutes"`
	Overdue         bool    `json:"overdue"`
}

// Tasks returns the full task listing with duration (startedAt to
// completedAt, or to now) and an overdue flag for tasks started more
// than two hours ago and not completed.
func (a *Aggregator) Tasks() []TaskView {
	tasks := a.state.ListTasks(coord.TaskFilter{})
	out := make([]TaskView, 0, len(tasks))
	nowTS := time.Now()
	for _, t := range tasks {
		v := TaskView{Task: t}
		if t.StartedAt != nil {
			end := nowTS
			if t.CompletedAt != nil {
				end = *t.CompletedAt
			}
			v.DurationMinutes = end.Sub(*t.StartedAt).Minutes()
			v.Overdue = t.CompletedAt == nil && nowTS.Sub(*t.StartedAt) > overdueAfter
		}
		out = append(out, v)
	}
	return out
}

// AgentView annotates an agent with minutes since its last activity.
type AgentView struct {
	*coord.Agent
	IdleMinutes float64 `json:"idle_minutes"`
}

// Agents returns the full agent listing.
func (a *Aggregator) Agents() []AgentView {
	agents := a.state.ListAgents()
	out := make([]AgentView, 0, len(agents))
	for _, ag := range agents {
		out = append(out, AgentView{
			Agent:       ag,
			IdleMinutes: time.Since(ag.LastActivity).Minutes(),
		})
	}
	return out
}

// WorkflowView annotates a workflow with its task count.
type WorkflowView struct {
	*coord.Workflow
	TaskCount int `json:"task_count"`
}

// Workflows returns the full workflow listing.
func (a *Aggregator) Workflows() []WorkflowView {
	workflows := a.state.ListWorkflows()
	out := make([]WorkflowView, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, WorkflowView{Workflow: w, TaskCount: len(w.TaskIDs)})
	}
	return out
}

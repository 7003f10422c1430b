// Package flow runs tabular tasks in named stages, materializing each task's
// output frames to a pluggable store. A task is keyed by its name, its
// declared version, and the keys of its inputs; re-running a flow whose tasks
// and inputs are unchanged fetches their outputs from the store instead of
// recomputing them. Bumping a task's version (or changing anything upstream
// of it) invalidates its cache entry and everything downstream.
package flow

import (
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/tabkit/tdk/frame"
)

// TaskFunc computes a task's output frames from its input frames.
type TaskFunc func(ins []*frame.Frame) ([]*frame.Frame, error)

// Output names one of a task's output tables, for wiring into downstream
// tasks.
type Output struct {
	task *Task
	idx  int
}

// Task is one materialized step of a flow.
type Task struct {
	name    string
	version string
	nout    int
	fn      TaskFunc
	inputs  []Output
	stage   *Stage
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Out returns the task's i'th output table.
func (t *Task) Out(i int) Output {
	if i < 0 || i >= t.nout {
		panic(fmt.Sprintf("task '%s' has %d outputs, no output %d", t.name, t.nout, i))
	}
	return Output{task: t, idx: i}
}

// Output returns the task's only output table.
func (t *Task) Output() Output { return t.Out(0) }

// Stage is an ordered group of tasks within a flow.
type Stage struct {
	name  string
	tasks []*Task
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Task adds a task to the stage. version identifies the task's logic for
// caching purposes; an empty version marks the task lazy, meaning it always
// runs and its outputs are never stored. nout is the number of output frames
// the task func returns. Inputs must be outputs of tasks added earlier.
func (s *Stage) Task(name, version string, nout int, fn TaskFunc, inputs ...Output) *Task {
	t := &Task{name: name, version: version, nout: nout, fn: fn, inputs: inputs, stage: s}
	s.tasks = append(s.tasks, t)
	return t
}

// Flow is an ordered sequence of stages.
type Flow struct {
	name   string
	stages []*Stage
}

// New returns an empty flow with the given name.
func New(name string) *Flow {
	return &Flow{name: name}
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// Stage appends a new stage to the flow.
func (f *Flow) Stage(name string) *Stage {
	s := &Stage{name: name}
	f.stages = append(f.stages, s)
	return s
}

// Result holds the outcome of a flow run and the computed tables.
type Result struct {
	Successful bool
	Ran        int
	CacheHits  int

	outputs map[*Task][]*frame.Frame
}

// Tables returns all output frames of the given task.
func (r *Result) Tables(t *Task) []*frame.Frame { return r.outputs[t] }

// Table returns the frame behind the given output.
func (r *Result) Table(o Output) *frame.Frame {
	outs := r.outputs[o.task]
	if o.idx >= len(outs) {
		return nil
	}
	return outs[o.idx]
}

// Run executes the flow's stages in order, tasks in declaration order within
// each stage. store may be nil, in which case nothing is materialized and
// every task runs.
func (f *Flow) Run(store Store) (*Result, error) {
	res := &Result{outputs: make(map[*Task][]*frame.Frame)}
	keys := make(map[*Task]string)
	for _, stage := range f.stages {
		for _, task := range stage.tasks {
			if err := f.runTask(store, stage, task, res, keys); err != nil {
				return res, errors.Wrapf(err, "stage '%s': task '%s'", stage.name, task.name)
			}
		}
	}
	res.Successful = true
	return res, nil
}

func (f *Flow) runTask(store Store, stage *Stage, task *Task, res *Result, keys map[*Task]string) error {
	ins := make([]*frame.Frame, len(task.inputs))
	h := xxhash.New()
	h.WriteString(f.name)
	h.WriteString("/")
	h.WriteString(stage.name)
	h.WriteString("/")
	h.WriteString(task.name)
	h.WriteString("@")
	h.WriteString(task.version)
	for i, in := range task.inputs {
		outs, ok := res.outputs[in.task]
		if !ok {
			return errors.Errorf("depends on task '%s' which has not run", in.task.name)
		}
		if in.idx >= len(outs) {
			return errors.Errorf("task '%s' has no output %d", in.task.name, in.idx)
		}
		ins[i] = outs[in.idx]
		fmt.Fprintf(h, "|%s#%d", keys[in.task], in.idx)
	}
	key := fmt.Sprintf("%s/%s@%016x", stage.name, task.name, h.Sum64())
	keys[task] = key

	cacheable := store != nil && task.version != ""
	if cacheable {
		blob, ok, err := store.Get(key)
		if err != nil {
			return errors.Wrap(err, "reading store")
		}
		if ok {
			outs, err := decodeTables(blob)
			if err != nil {
				return errors.Wrap(err, "decoding cached tables")
			}
			if len(outs) != task.nout {
				return errors.Errorf("cached entry has %d tables, expected %d", len(outs), task.nout)
			}
			res.outputs[task] = outs
			res.CacheHits++
			log.Printf("flow %s: %s cached", f.name, key)
			return nil
		}
	}

	start := time.Now()
	outs, err := task.fn(ins)
	if err != nil {
		return err
	}
	if len(outs) != task.nout {
		return errors.Errorf("returned %d tables, declared %d", len(outs), task.nout)
	}
	res.outputs[task] = outs
	res.Ran++
	log.Printf("flow %s: %s ran in %s", f.name, key, time.Since(start))

	if cacheable {
		blob, err := encodeTables(outs)
		if err != nil {
			return errors.Wrap(err, "encoding tables")
		}
		if err := store.Put(key, blob); err != nil {
			return errors.Wrap(err, "writing store")
		}
	}
	return nil
}

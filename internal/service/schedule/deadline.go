// Package schedule runs deferred actions on the scan loop's own execution context.
//
// Nothing here starts goroutines or timers: the owner calls Fire with the
// current time from its tick, and every due action runs synchronously, oldest
// deadline first. This keeps state touched by actions single-threaded.
package schedule

import (
	"sort"
	"time"
)

// Token identifies an armed action. The zero Token is never issued.
type Token uint64

type task struct {
	token  Token
	at     time.Time
	action func()
}

// Deadlines is a set of cancelable one-shot actions. Not safe for concurrent use.
type Deadlines struct {
	last  Token
	tasks map[Token]*task
}

func NewDeadlines() *Deadlines {
	return &Deadlines{tasks: make(map[Token]*task)}
}

// Arm schedules action to run on the first Fire at or after at.
func (d *Deadlines) Arm(at time.Time, action func()) Token {
	d.last++
	d.tasks[d.last] = &task{token: d.last, at: at, action: action}
	return d.last
}

// Rearm cancels prev (if still pending) and arms a replacement.
func (d *Deadlines) Rearm(prev Token, at time.Time, action func()) Token {
	d.Cancel(prev)
	return d.Arm(at, action)
}

// Cancel drops a pending action. It reports whether anything was pending.
func (d *Deadlines) Cancel(t Token) bool {
	if _, ok := d.tasks[t]; !ok {
		return false
	}
	delete(d.tasks, t)
	return true
}

// Pending reports whether t is armed and has not fired or been canceled.
func (d *Deadlines) Pending(t Token) bool {
	_, ok := d.tasks[t]
	return ok
}

// Deadline returns when t is due.
func (d *Deadlines) Deadline(t Token) (time.Time, bool) {
	task, ok := d.tasks[t]
	if !ok {
		return time.Time{}, false
	}
	return task.at, true
}

// Fire runs every action due at now and returns how many ran. Each task is
// removed before its action runs, so an action may re-arm or cancel freely and
// a canceled task never runs, even if it was due in the same Fire.
func (d *Deadlines) Fire(now time.Time) int {
	var due []*task
	for _, t := range d.tasks {
		if !t.at.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].token < due[j].token
		}
		return due[i].at.Before(due[j].at)
	})

	fired := 0
	for _, t := range due {
		if _, ok := d.tasks[t.token]; !ok {
			continue
		}
		delete(d.tasks, t.token)
		t.action()
		fired++
	}
	return fired
}

// CancelAll drops every pending action.
func (d *Deadlines) CancelAll() {
	d.tasks = make(map[Token]*task)
}

// Len is the number of pending actions.
func (d *Deadlines) Len() int {
	return len(d.tasks)
}

package netmock

import (
	"container/heap"
	"time"
)

// AlarmInfo describes one scheduled alarm (§3).
type AlarmInfo struct {
	handle CallbackHandle
	when   time.Time
	action AlarmAction
	seq    int64 // insertion order, for tie-breaking at equal when
}

// alarmHeapItem is the container/heap element, following the same
// index-tracking shape as the teacher's pqTimeItem in pq.go.
type alarmHeapItem struct {
	info  *AlarmInfo
	index int
}

// alarmInner implements heap.Interface over alarmHeapItems, min-ordered
// on (when, seq) so the earliest-due, earliest-inserted alarm is always
// at index 0 (§3, §4.3).
type alarmInner []*alarmHeapItem

func (h alarmInner) Len() int { return len(h) }

func (h alarmInner) Less(i, j int) bool {
	if h[i].info.when.Equal(h[j].info.when) {
		return h[i].info.seq < h[j].info.seq
	}
	return h[i].info.when.Before(h[j].info.when)
}

func (h alarmInner) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *alarmInner) Push(x any) {
	item := x.(*alarmHeapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *alarmInner) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// AlarmHeap is the min-heap of scheduled alarms keyed by firing time
// (§2, §3), with logical cancellation via a tombstone set per DESIGN
// NOTES §9: removing an arbitrary entry from a binary heap is costly,
// so cancelAlarm just marks the handle canceled and the heap discards
// it lazily when it would otherwise fire.
type AlarmHeap struct {
	inner     alarmInner
	canceled  map[CallbackHandle]struct{}
	nextSeq   int64
}

func newAlarmHeap() *AlarmHeap {
	return &AlarmHeap{
		canceled: make(map[CallbackHandle]struct{}),
	}
}

func (a *AlarmHeap) Len() int { return a.inner.Len() }

// push schedules a new alarm.
func (a *AlarmHeap) push(handle CallbackHandle, when time.Time, action AlarmAction) {
	info := &AlarmInfo{handle: handle, when: when, action: action, seq: a.nextSeq}
	a.nextSeq++
	heap.Push(&a.inner, &alarmHeapItem{info: info})
}

// cancel logically removes handle's alarm, if any is pending. It is a
// no-op for an unknown or already-fired handle (§8 idempotence).
func (a *AlarmHeap) cancel(handle CallbackHandle) {
	a.canceled[handle] = struct{}{}
}

// peekWhen returns the firing time of the earliest non-canceled alarm,
// discarding any canceled tombstoned entries found at the top along the
// way. ok is false if no such alarm exists.
func (a *AlarmHeap) peekWhen() (when time.Time, ok bool) {
	a.discardCanceledAtTop()
	if a.inner.Len() == 0 {
		return time.Time{}, false
	}
	return a.inner[0].info.when, true
}

// discardCanceledAtTop pops and drops any canceled entries sitting at
// the top of the heap, so that index 0, if present, is always live.
func (a *AlarmHeap) discardCanceledAtTop() {
	for a.inner.Len() > 0 {
		top := a.inner[0].info
		if _, dead := a.canceled[top.handle]; !dead {
			return
		}
		heap.Pop(&a.inner)
		delete(a.canceled, top.handle)
	}
}

// popReady pops and returns the earliest alarm if its when is <= asOf,
// skipping (and clearing the tombstone for) any canceled entries found
// first. ok is false if there is nothing ready.
func (a *AlarmHeap) popReady(asOf time.Time) (info *AlarmInfo, ok bool) {
	for a.inner.Len() > 0 {
		top := a.inner[0].info
		if top.when.After(asOf) {
			return nil, false
		}
		heap.Pop(&a.inner)
		if _, dead := a.canceled[top.handle]; dead {
			delete(a.canceled, top.handle)
			continue
		}
		return top, true
	}
	return nil, false
}

// drainAll pops every remaining alarm (live or not) and clears the
// heap, used by shutdown (§4.1) which must leave "no non-canceled
// entry" (§8 invariant 5) behind. It invokes no action itself: live
// alarms are returned to the caller so it can invoke their action with
// CallbackCanceled outside the lock; tombstoned ones are simply
// dropped.
func (a *AlarmHeap) drainAll() (live []*AlarmInfo) {
	for a.inner.Len() > 0 {
		item := heap.Pop(&a.inner).(*alarmHeapItem)
		if _, dead := a.canceled[item.info.handle]; dead {
			delete(a.canceled, item.info.handle)
			continue
		}
		live = append(live, item.info)
	}
	return live
}

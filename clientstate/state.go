package clientstate

import (
	"sync"
	"time"
)

type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastInfo    ToastType = "info"
	ToastWarning ToastType = "warning"
)

const (
	DefaultToastDuration = 3 * time.Second
	// NoAutoDismiss keeps a toast visible until ClearToast or the next toast.
	NoAutoDismiss time.Duration = -1
)

type Toast struct {
	Visible  bool
	Message  string
	Type     ToastType
	Duration time.Duration
}

// Profile is the client-side projection of the signed-in user.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type Status int

const (
	StatusUninitialized Status = iota
	StatusUnauthenticated
	StatusAwaitingVerification
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAwaitingVerification:
		return "awaiting_verification"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// State is an immutable snapshot handed to Get callers and subscribers.
type State struct {
	User    *Profile
	Loading bool
	Toast   Toast
	Status  Status
}

func (st State) clone() State {
	if st.User != nil {
		user := *st.User
		st.User = &user
	}
	return st
}

// observable holds the state and its subscribers. Subscribers run outside the lock,
// once per change, in change order and then subscription order.
type observable struct {
	lock         sync.Mutex
	state        State
	loadingDepth int
	subscribers  map[int]func(State)
	order        []int
	nextID       int

	// pending changes not yet delivered; only the goroutine that set delivering drains it
	pending    []delivery
	delivering bool

	toastDuration time.Duration
	toastGen      uint64
	toastTimer    *time.Timer
}

type delivery struct {
	state       State
	subscribers []int
}

func newObservable(toastDuration time.Duration) *observable {
	return &observable{
		state:         State{Toast: hiddenToast(toastDuration)},
		subscribers:   make(map[int]func(State)),
		toastDuration: toastDuration,
	}
}

func hiddenToast(duration time.Duration) Toast {
	return Toast{Type: ToastInfo, Duration: duration}
}

// Get returns a snapshot of the current state.
func (o *observable) Get() State {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.state.clone()
}

// Subscribe registers fn for every later state change. The returned func unsubscribes.
// Changes are delivered one at a time in the order they happened, so the last snapshot a
// subscriber sees is the current state. A setter called from fn is delivered after fn returns.
func (o *observable) Subscribe(fn func(State)) func() {
	o.lock.Lock()
	defer o.lock.Unlock()

	id := o.nextID
	o.nextID++
	o.subscribers[id] = fn
	o.order = append(o.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.lock.Lock()
			defer o.lock.Unlock()
			delete(o.subscribers, id)
			for i, existing := range o.order {
				if existing == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *observable) SetUser(user *Profile) {
	o.update(func(st *State) {
		if user == nil {
			st.User = nil
			return
		}
		copied := *user
		st.User = &copied
	})
}

func (o *observable) SetLoading(loading bool) {
	o.update(func(st *State) {
		st.Loading = loading
	})
}

// SetToast shows a toast. A zero duration uses the default, NoAutoDismiss keeps it up.
// A later toast always replaces an earlier one, and an earlier toast's timer never clears a later toast.
func (o *observable) SetToast(message string, toastType ToastType, duration time.Duration) {
	if duration == 0 {
		duration = o.toastDuration
	}

	o.lock.Lock()
	o.toastGen++
	gen := o.toastGen
	if o.toastTimer != nil {
		o.toastTimer.Stop()
		o.toastTimer = nil
	}
	if duration > 0 {
		o.toastTimer = time.AfterFunc(duration, func() { o.expireToast(gen) })
	}
	o.state.Toast = Toast{Visible: true, Message: message, Type: toastType, Duration: duration}
	o.publishLocked()
}

func (o *observable) ClearToast() {
	o.lock.Lock()
	o.toastGen++
	if o.toastTimer != nil {
		o.toastTimer.Stop()
		o.toastTimer = nil
	}
	o.state.Toast = hiddenToast(o.toastDuration)
	o.publishLocked()
}

// Close stops a pending toast timer.
func (o *observable) Close() {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.toastTimer != nil {
		o.toastTimer.Stop()
		o.toastTimer = nil
	}
}

func (o *observable) expireToast(gen uint64) {
	o.lock.Lock()
	if gen != o.toastGen {
		o.lock.Unlock()
		return
	}
	o.toastTimer = nil
	o.state.Toast = hiddenToast(o.toastDuration)
	o.publishLocked()
}

func (o *observable) setStatus(status Status) {
	o.update(func(st *State) {
		st.Status = status
	})
}

// setSession sets the profile and status as one change.
func (o *observable) setSession(user *Profile, status Status) {
	o.update(func(st *State) {
		st.User = user
		st.Status = status
	})
}

// beginLoading marks the store busy until the returned func runs. Calls nest.
func (o *observable) beginLoading() func() {
	o.lock.Lock()
	o.loadingDepth++
	if o.loadingDepth > 1 {
		o.lock.Unlock()
	} else {
		o.state.Loading = true
		o.publishLocked()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			o.lock.Lock()
			o.loadingDepth--
			if o.loadingDepth > 0 {
				o.lock.Unlock()
				return
			}
			o.state.Loading = false
			o.publishLocked()
		})
	}
}

func (o *observable) update(mutate func(st *State)) {
	o.lock.Lock()
	mutate(&o.state)
	o.publishLocked()
}

// publishLocked queues a snapshot of the state for the current subscribers and releases the lock.
// If no other call is delivering, this one drains the queue until it is empty.
func (o *observable) publishLocked() {
	o.pending = append(o.pending, delivery{
		state:       o.state.clone(),
		subscribers: append([]int(nil), o.order...),
	})
	if o.delivering {
		o.lock.Unlock()
		return
	}
	o.delivering = true

	for len(o.pending) > 0 {
		next := o.pending[0]
		o.pending = o.pending[1:]

		subscribers := make([]func(State), 0, len(next.subscribers))
		for _, id := range next.subscribers {
			if fn, ok := o.subscribers[id]; ok {
				subscribers = append(subscribers, fn)
			}
		}
		o.lock.Unlock()

		for _, fn := range subscribers {
			fn(next.state)
		}
		o.lock.Lock()
	}
	o.delivering = false
	o.lock.Unlock()
}

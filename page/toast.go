package page

import (
	"context"
	"sync"
	"time"

	"github.com/K3das/orange-scribe/utils"
	"go.uber.org/zap"
)

const DefaultToastDuration = 4 * time.Second

// Surface displays a single transient notification per scope.
type Surface interface {
	ShowToast(ctx context.Context, text string, isError bool) error
	HideToast(ctx context.Context) error
}

type toastScopeKeyType struct{}

// WithToastScope sets which toast a run replaces. Hosts shared by several
// users give each user a scope; the default scope is "".
func WithToastScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, toastScopeKeyType{}, scope)
}

func ToastScopeFromContext(ctx context.Context) string {
	scope, _ := ctx.Value(toastScopeKeyType{}).(string)
	return scope
}

type toastSlot struct {
	timer      *time.Timer
	generation uint64
}

// Toaster hides every toast after a fixed duration. Showing a new toast in
// the same scope replaces the current one and restarts the countdown.
type Toaster struct {
	log      *zap.Logger
	surface  Surface
	duration time.Duration

	mu         sync.Mutex
	slots      map[string]*toastSlot
	generation uint64
}

func NewToaster(log *zap.Logger, surface Surface, duration time.Duration) *Toaster {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Toaster{
		log:      log,
		surface:  surface,
		duration: duration,
		slots:    make(map[string]*toastSlot),
	}
}

func (t *Toaster) Show(ctx context.Context, text string, isError bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// a failed show leaves the previous countdown running
	if err := t.surface.ShowToast(ctx, text, isError); err != nil {
		return err
	}

	scope := ToastScopeFromContext(ctx)
	if slot, ok := t.slots[scope]; ok {
		slot.timer.Stop()
	}

	t.generation++
	generation := t.generation

	hideCtx := context.WithoutCancel(ctx)
	t.slots[scope] = &toastSlot{
		generation: generation,
		timer: time.AfterFunc(t.duration, func() {
			t.hide(hideCtx, scope, generation)
		}),
	}
	return nil
}

func (t *Toaster) hide(ctx context.Context, scope string, generation uint64) {
	defer utils.PanicRecovery(t.log)

	t.mu.Lock()
	defer t.mu.Unlock()

	// replaced while this timer was waiting for the lock
	slot, ok := t.slots[scope]
	if !ok || slot.generation != generation {
		return
	}
	delete(t.slots, scope)

	if err := t.surface.HideToast(ctx); err != nil {
		utils.GetLogFromContext(ctx, t.log).Warn("failed to hide toast", zap.Error(err))
	}
}

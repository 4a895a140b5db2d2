// Package chat holds the conversation state of a single chat session and
// reconciles completion results into it.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/diogo/gemmy/internal/api"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

// ErrInFlight is returned when a submission arrives while a request is outstanding
var ErrInFlight = apierrors.ErrInFlight

// errStaleTurn is returned by Complete for a turn that does not hold the guard
var errStaleTurn = errors.New("chat: turn is not in flight")

// State is the request state of the controller
type State int

const (
	Idle State = iota
	InFlight
)

func (s State) String() string {
	if s == InFlight {
		return "in-flight"
	}
	return "idle"
}

// Notifier surfaces a failed request to the user. It is called exactly once
// per failed request and never for answered, empty or canceled ones.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }

type nopNotifier struct{}

func (nopNotifier) Notify(error) {}

// OutcomeKind classifies how a request ended
type OutcomeKind int

const (
	// Answered means an ai message was appended
	Answered OutcomeKind = iota
	// NoAnswer means the response carried no text; nothing was appended
	NoAnswer
	// Failed means the request failed and the notifier was called
	Failed
	// Canceled means the caller canceled the request
	Canceled
)

func (k OutcomeKind) String() string {
	switch k {
	case Answered:
		return "answered"
	case NoAnswer:
		return "no-answer"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Outcome describes the result of one request
type Outcome struct {
	Kind     OutcomeKind
	Message  models.Message // the appended ai message when Kind is Answered
	Err      error          // set when Kind is Failed or Canceled
	Duration time.Duration
}

// Turn is a request that passed the guard and awaits Complete
type Turn struct {
	Prompt string
	id     uint64
}

// Controller owns the message log, the pending input and the single-flight guard
type Controller struct {
	completer api.Completer
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	messages  []models.Message
	pending   string
	state     State
	version   uint64
	turnID    uint64
	observers map[int]func(models.Message)
	nextObs   int
}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier sets where failures are reported
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates an idle controller with an empty log
func NewController(completer api.Completer, opts ...Option) *Controller {
	c := &Controller{
		completer: completer,
		notifier:  nopNotifier{},
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		observers: make(map[int]func(models.Message)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetNotifier replaces the notifier. The TUI uses it once its program exists.
func (c *Controller) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// ModelName returns the model requests are sent to
func (c *Controller) ModelName() string {
	return c.completer.ModelName()
}

// Submit appends text as a user message and requests a completion for it.
// Blank text is ignored and returns apierrors.ErrEmptyPrompt without
// touching the log; a submission while in flight returns ErrInFlight.
func (c *Controller) Submit(ctx context.Context, text string) (Outcome, error) {
	turn, err := c.Begin(text)
	if err != nil {
		return Outcome{}, err
	}
	return c.Complete(ctx, turn), nil
}

// Begin performs the synchronous half of Submit: it takes the guard,
// appends the user message and clears the pending input.
func (c *Controller) Begin(text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, apierrors.ErrEmptyPrompt
	}

	c.mu.Lock()
	turn, err := c.acquireLocked(text)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("submission dropped", "reason", err)
		return Turn{}, err
	}
	msg := models.NewUserMessage(text, c.now())
	c.appendLocked(msg)
	c.pending = ""
	observers := c.observersLocked()
	c.mu.Unlock()

	notifyObservers(observers, msg)
	return turn, nil
}

// RequestCompletion sends text without appending a user message
func (c *Controller) RequestCompletion(ctx context.Context, text string) (Outcome, error) {
	c.mu.Lock()
	turn, err := c.acquireLocked(text)
	c.mu.Unlock()
	if err != nil {
		return Outcome{}, err
	}
	return c.Complete(ctx, turn), nil
}

// Complete issues the call for turn, reconciles its result into the log
// and releases the guard. It must be called once for every Turn from Begin.
// The guard is released even if the completer panics.
func (c *Controller) Complete(ctx context.Context, turn Turn) Outcome {
	c.mu.Lock()
	if c.state != InFlight || turn.id != c.turnID {
		c.mu.Unlock()
		return Outcome{Kind: Failed, Err: errStaleTurn}
	}
	c.mu.Unlock()
	defer c.release(turn)

	start := c.now()
	c.logger.Info("request started", "model", c.completer.ModelName(), "prompt_len", len(turn.Prompt))

	completion, err := c.completer.Complete(ctx, turn.Prompt)

	out := Outcome{Duration: c.now().Sub(start)}
	var observers []func(models.Message)
	var notifier Notifier

	c.mu.Lock()
	switch {
	case err != nil && (apierrors.IsCanceled(err) || errors.Is(ctx.Err(), context.Canceled)):
		out.Kind = Canceled
		out.Err = err
	case err != nil:
		out.Kind = Failed
		out.Err = err
		notifier = c.notifier
	case completion.HasText():
		out.Kind = Answered
		out.Message = models.NewAIMessage(completion.Text, c.now())
		c.appendLocked(out.Message)
		observers = c.observersLocked()
	default:
		out.Kind = NoAnswer
	}
	c.state = Idle
	c.mu.Unlock()

	c.logOutcome(out)
	notifyObservers(observers, out.Message)
	if notifier != nil {
		notifier.Notify(out.Err)
	}
	return out
}

func (c *Controller) logOutcome(out Outcome) {
	attrs := []any{"outcome", out.Kind.String(), "duration", out.Duration}
	if out.Kind == Failed {
		if status := apierrors.GetHTTPStatus(out.Err); status != 0 {
			attrs = append(attrs, "status", status)
		}
		attrs = append(attrs, "error", out.Err)
		c.logger.Warn("request finished", attrs...)
		return
	}
	c.logger.Info("request finished", attrs...)
}

// release returns the controller to Idle if turn still holds the guard
func (c *Controller) release(turn Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == InFlight && c.turnID == turn.id {
		c.state = Idle
	}
}

// acquireLocked moves the controller to InFlight. c.mu must be held.
func (c *Controller) acquireLocked(text string) (Turn, error) {
	if text == "" {
		return Turn{}, apierrors.ErrEmptyPrompt
	}
	if c.state == InFlight {
		return Turn{}, ErrInFlight
	}
	c.state = InFlight
	c.turnID++
	return Turn{Prompt: text, id: c.turnID}, nil
}

func (c *Controller) appendLocked(msg models.Message) {
	c.messages = append(c.messages, msg)
	c.version++
}

func (c *Controller) observersLocked() []func(models.Message) {
	if len(c.observers) == 0 {
		return nil
	}
	fns := make([]func(models.Message), 0, len(c.observers))
	for i := 0; i < c.nextObs; i++ {
		if fn, ok := c.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func notifyObservers(fns []func(models.Message), msg models.Message) {
	for _, fn := range fns {
		fn(msg)
	}
}

// Subscribe registers fn to be called after every append, in subscription
// order. The returned function removes it.
func (c *Controller) Subscribe(fn func(models.Message)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Messages returns a copy of the log
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the log
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// LastAnswer returns the most recent ai message
func (c *Controller) LastAnswer() (models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Sender == models.SenderAI {
			return c.messages[i], true
		}
	}
	return models.Message{}, false
}

// Version increases by one on every append
func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// State returns the current request state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether a request is outstanding
func (c *Controller) InFlight() bool {
	return c.State() == InFlight
}

// Pending returns the unsent input text
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SetPending replaces the unsent input text
func (c *Controller) SetPending(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = s
}

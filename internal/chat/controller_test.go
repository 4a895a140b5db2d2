package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"

	"github.com/diogo/gemmy/internal/api"
	apierrors "github.com/diogo/gemmy/internal/errors"
	"github.com/diogo/gemmy/internal/models"
)

// recordingNotifier counts notifications
type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Notify(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

type logEntry struct {
	text   string
	sender models.Sender
}

func assertLog(t *testing.T, c *Controller, want []logEntry) {
	t.Helper()
	got := c.Messages()
	if len(got) != len(want) {
		t.Fatalf("log has %d messages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Text != want[i].text || got[i].Sender != want[i].sender {
			t.Errorf("message %d = {%q, %s}, want {%q, %s}", i, got[i].Text, got[i].Sender, want[i].text, want[i].sender)
		}
	}
}

func TestSubmit_HelloExample(t *testing.T) {
	mock := &api.MockCompleter{Answer: "hi there"}
	notifier := &recordingNotifier{}
	c := NewController(mock, WithNotifier(notifier))

	out, err := c.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if out.Kind != Answered {
		t.Errorf("Kind = %s, want answered", out.Kind)
	}
	if out.Message.Text != "hi there" || out.Message.Sender != models.SenderAI {
		t.Errorf("Message = %+v", out.Message)
	}
	assertLog(t, c, []logEntry{{"hello", models.SenderUser}, {"hi there", models.SenderAI}})

	if prompts := mock.Prompts(); len(prompts) != 1 || prompts[0] != "hello" {
		t.Errorf("prompts = %v, want [hello]", prompts)
	}
	if notifier.count() != 0 {
		t.Errorf("notifications = %d, want 0", notifier.count())
	}
	if c.InFlight() {
		t.Error("controller should be idle after Submit")
	}
	if c.Version() != 2 {
		t.Errorf("Version() = %d, want 2", c.Version())
	}
}

func TestSubmit_BlankIsIgnored(t *testing.T) {
	inputs := []string{"", " ", "   ", "\t", "\n", " \t\r\n "}

	for _, input := range inputs {
		mock := &api.MockCompleter{Answer: "unused"}
		c := NewController(mock)
		c.SetPending(input)

		_, err := c.Submit(context.Background(), input)
		if !errors.Is(err, apierrors.ErrEmptyPrompt) {
			t.Errorf("Submit(%q) error = %v, want ErrEmptyPrompt", input, err)
		}
		if c.Len() != 0 {
			t.Errorf("Submit(%q) changed the log", input)
		}
		if mock.Calls() != 0 {
			t.Errorf("Submit(%q) made %d calls", input, mock.Calls())
		}
		if c.Version() != 0 {
			t.Errorf("Submit(%q) bumped the version", input)
		}
		if c.Pending() != input {
			t.Errorf("Submit(%q) cleared pending input", input)
		}
	}
}

func TestSubmit_RawTextIsStoredAndSent(t *testing.T) {
	mock := &api.MockCompleter{Answer: "ok"}
	c := NewController(mock)

	text := "  padded prompt \n"
	if _, err := c.Submit(context.Background(), text); err != nil {
		t.Fatal(err)
	}

	if got := c.Messages()[0].Text; got != text {
		t.Errorf("stored text = %q, want %q", got, text)
	}
	if got := mock.Prompts()[0]; got != text {
		t.Errorf("sent text = %q, want %q", got, text)
	}
}

func TestSubmit_UserMessageAppendedBeforeResolution(t *testing.T) {
	mock := &api.MockCompleter{
		Answer:  "later",
		Gate:    make(chan struct{}),
		Started: make(chan string, 1),
	}
	c := NewController(mock)
	c.SetPending("question")

	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Submit(context.Background(), "question")
		done <- out
	}()

	<-mock.Started
	assertLog(t, c, []logEntry{{"question", models.SenderUser}})
	if !c.InFlight() {
		t.Error("controller should be in flight while the call is outstanding")
	}
	if c.Pending() != "" {
		t.Errorf("Pending() = %q, want cleared", c.Pending())
	}

	close(mock.Gate)
	out := <-done
	if out.Kind != Answered {
		t.Errorf("Kind = %s, want answered", out.Kind)
	}
	assertLog(t, c, []logEntry{{"question", models.SenderUser}, {"later", models.SenderAI}})
}

func TestSubmit_Outcomes(t *testing.T) {
	failure := apierrors.NewNetworkError("generate content", errors.New("connection refused"))

	tests := []struct {
		name          string
		mock          *api.MockCompleter
		wantKind      OutcomeKind
		wantLog       []logEntry
		notifications int
	}{
		{
			name:          "answer",
			mock:          &api.MockCompleter{Answer: "a"},
			wantKind:      Answered,
			wantLog:       []logEntry{{"s", models.SenderUser}, {"a", models.SenderAI}},
			notifications: 0,
		},
		{
			name:     "missing fields",
			mock:     &api.MockCompleter{Answer: ""},
			wantKind: NoAnswer,
			wantLog:  []logEntry{{"s", models.SenderUser}},
		},
		{
			name: "nil completion",
			mock: &api.MockCompleter{CompleteFunc: func(context.Context, string) (*models.Completion, error) {
				return nil, nil
			}},
			wantKind: NoAnswer,
			wantLog:  []logEntry{{"s", models.SenderUser}},
		},
		{
			name:          "transport failure",
			mock:          &api.MockCompleter{Err: failure},
			wantKind:      Failed,
			wantLog:       []logEntry{{"s", models.SenderUser}},
			notifications: 1,
		},
		{
			name:          "server error",
			mock:          &api.MockCompleter{Err: apierrors.NewAPIError(500, "endpoint", "internal")},
			wantKind:      Failed,
			wantLog:       []logEntry{{"s", models.SenderUser}},
			notifications: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			c := NewController(tt.mock, WithNotifier(notifier))

			out, err := c.Submit(context.Background(), "s")
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", out.Kind, tt.wantKind)
			}
			assertLog(t, c, tt.wantLog)
			if notifier.count() != tt.notifications {
				t.Errorf("notifications = %d, want %d", notifier.count(), tt.notifications)
			}
			if c.InFlight() {
				t.Error("guard must be released")
			}
		})
	}
}

func TestSubmit_FailureNotifiesWithError(t *testing.T) {
	cause := apierrors.NewAPIError(503, "endpoint", "unavailable")
	notifier := &recordingNotifier{}
	c := NewController(&api.MockCompleter{Err: cause}, WithNotifier(notifier))

	out, _ := c.Submit(context.Background(), "s")
	if !errors.Is(out.Err, cause) {
		t.Errorf("Outcome.Err = %v, want %v", out.Err, cause)
	}
	if len(notifier.errs) != 1 || !errors.Is(notifier.errs[0], cause) {
		t.Errorf("notified errors = %v", notifier.errs)
	}

	// The controller stays usable after a failure
	c2mock := &api.MockCompleter{Answer: "recovered"}
	c.completer = c2mock
	out, err := c.Submit(context.Background(), "again")
	if err != nil || out.Kind != Answered {
		t.Fatalf("second Submit() = %v, %v", out.Kind, err)
	}
	assertLog(t, c, []logEntry{
		{"s", models.SenderUser},
		{"again", models.SenderUser},
		{"recovered", models.SenderAI},
	})
}

func TestSubmit_SecondSubmitWhileInFlight(t *testing.T) {
	mock := &api.MockCompleter{
		Answer:  "first answer",
		Gate:    make(chan struct{}),
		Started: make(chan string, 1),
	}
	c := NewController(mock)

	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Submit(context.Background(), "first")
		done <- out
	}()
	<-mock.Started

	_, err := c.Submit(context.Background(), "second")
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("second Submit() error = %v, want ErrInFlight", err)
	}
	if _, err := c.Begin("third"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("Begin() while in flight error = %v, want ErrInFlight", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("calls = %d, want 1", mock.Calls())
	}
	assertLog(t, c, []logEntry{{"first", models.SenderUser}})

	close(mock.Gate)
	<-done
	assertLog(t, c, []logEntry{{"first", models.SenderUser}, {"first answer", models.SenderAI}})
	if mock.Calls() != 1 {
		t.Errorf("calls after resolution = %d, want 1", mock.Calls())
	}
}

func TestSubmit_ConcurrentCallersSingleFlight(t *testing.T) {
	mock := &api.MockCompleter{
		Answer:  "only",
		Gate:    make(chan struct{}),
		Started: make(chan string, 16),
	}
	c := NewController(mock)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	rejected := 0

	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			if _, err := c.Submit(context.Background(), "race"); errors.Is(err, ErrInFlight) {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}

	<-mock.Started
	// Give the remaining callers time to hit the guard
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		r := rejected
		mu.Unlock()
		if r == callers-1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(mock.Gate)
	wg.Wait()

	if mock.Calls() != 1 {
		t.Errorf("calls = %d, want 1", mock.Calls())
	}
	if rejected != callers-1 {
		t.Errorf("rejected = %d, want %d", rejected, callers-1)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestSubmit_Canceled(t *testing.T) {
	mock := &api.MockCompleter{
		Gate:    make(chan struct{}),
		Started: make(chan string, 1),
	}
	notifier := &recordingNotifier{}
	c := NewController(mock, WithNotifier(notifier))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Submit(ctx, "slow")
		done <- out
	}()
	<-mock.Started
	cancel()

	out := <-done
	if out.Kind != Canceled {
		t.Errorf("Kind = %s, want canceled", out.Kind)
	}
	if notifier.count() != 0 {
		t.Errorf("cancel must not notify, got %d", notifier.count())
	}
	assertLog(t, c, []logEntry{{"slow", models.SenderUser}})
	if c.InFlight() {
		t.Error("guard must be released after cancel")
	}
}

func TestBeginComplete(t *testing.T) {
	mock := &api.MockCompleter{Answer: "two-phase"}
	c := NewController(mock)
	c.SetPending("typed")

	turn, err := c.Begin("typed")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if turn.Prompt != "typed" {
		t.Errorf("turn.Prompt = %q", turn.Prompt)
	}
	if !c.InFlight() || c.Pending() != "" || c.Len() != 1 {
		t.Fatalf("after Begin: inFlight=%v pending=%q len=%d", c.InFlight(), c.Pending(), c.Len())
	}
	if mock.Calls() != 0 {
		t.Error("Begin must not call the completer")
	}

	out := c.Complete(context.Background(), turn)
	if out.Kind != Answered {
		t.Errorf("Kind = %s, want answered", out.Kind)
	}

	// A turn can only be completed once
	stale := c.Complete(context.Background(), turn)
	if !errors.Is(stale.Err, errStaleTurn) {
		t.Errorf("second Complete() err = %v, want stale turn", stale.Err)
	}
	if mock.Calls() != 1 {
		t.Errorf("calls = %d, want 1", mock.Calls())
	}
}

func TestRequestCompletion(t *testing.T) {
	mock := &api.MockCompleter{Answer: "direct"}
	c := NewController(mock)

	out, err := c.RequestCompletion(context.Background(), "no user message")
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != Answered {
		t.Errorf("Kind = %s", out.Kind)
	}
	assertLog(t, c, []logEntry{{"direct", models.SenderAI}})

	if _, err := c.RequestCompletion(context.Background(), ""); !errors.Is(err, apierrors.ErrEmptyPrompt) {
		t.Errorf("empty RequestCompletion() error = %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	mock := &api.MockCompleter{Answer: "pong"}
	c := NewController(mock)

	var seen []string
	var versions []uint64
	unsubscribe := c.Subscribe(func(m models.Message) {
		seen = append(seen, string(m.Sender)+":"+m.Text)
		versions = append(versions, c.Version())
	})

	if _, err := c.Submit(context.Background(), "ping"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "user:ping" || seen[1] != "ai:pong" {
		t.Errorf("observed = %v", seen)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Errorf("versions seen by observer = %v, want [1 2]", versions)
	}

	unsubscribe()
	if _, err := c.Submit(context.Background(), "again"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("unsubscribed observer still called: %v", seen)
	}
}

func TestSubscribe_NoAnswerDoesNotNotify(t *testing.T) {
	c := NewController(&api.MockCompleter{})
	calls := 0
	c.Subscribe(func(models.Message) { calls++ })

	if _, err := c.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("observer calls = %d, want 1 (user message only)", calls)
	}
}

func TestMessages_ReturnsCopy(t *testing.T) {
	c := NewController(&api.MockCompleter{Answer: "a"})
	if _, err := c.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	msgs := c.Messages()
	msgs[0].Text = "mutated"
	if c.Messages()[0].Text != "q" {
		t.Error("Messages() must return a copy")
	}
}

func TestLastAnswer(t *testing.T) {
	c := NewController(&api.MockCompleter{Answer: "first"})
	if _, ok := c.LastAnswer(); ok {
		t.Error("empty log should have no answer")
	}

	_, _ = c.Submit(context.Background(), "one")
	c.completer = &api.MockCompleter{}
	_, _ = c.Submit(context.Background(), "two")

	got, ok := c.LastAnswer()
	if !ok || got.Text != "first" {
		t.Errorf("LastAnswer() = %q, %v", got.Text, ok)
	}
}

func TestTimestampsUseClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewController(&api.MockCompleter{Answer: "a"}, WithClock(func() time.Time { return fixed }))

	_, _ = c.Submit(context.Background(), "q")
	for _, m := range c.Messages() {
		if !m.CreatedAt.Equal(fixed) {
			t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, fixed)
		}
	}
}

func TestNotifierFunc(t *testing.T) {
	var got error
	want := apierrors.NewAPIError(502, "endpoint", "bad gateway")
	c := NewController(&api.MockCompleter{Err: want})
	c.SetNotifier(NotifierFunc(func(err error) { got = err }))

	_, _ = c.Submit(context.Background(), "q")
	if !errors.Is(got, want) {
		t.Errorf("notified = %v", got)
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || InFlight.String() != "in-flight" {
		t.Errorf("State strings = %q, %q", Idle, InFlight)
	}
	if Failed.String() != "failed" || OutcomeKind(99).String() != "unknown" {
		t.Error("unexpected OutcomeKind string")
	}
}

// doerFunc adapts a function to api.Doer
type doerFunc func(*fhttp.Request) (*fhttp.Response, error)

func (f doerFunc) Do(req *fhttp.Request) (*fhttp.Response, error) { return f(req) }

func TestSubmit_NonJSONSuccessIsNoAnswer(t *testing.T) {
	client, err := api.NewClient("k", api.WithHTTPClient(doerFunc(func(*fhttp.Request) (*fhttp.Response, error) {
		return &fhttp.Response{
			StatusCode: fhttp.StatusOK,
			Header:     fhttp.Header{"Content-Type": []string{"text/html"}},
			Body:       io.NopCloser(strings.NewReader("<html>ok</html>")),
		}, nil
	})))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	notifier := &recordingNotifier{}
	c := NewController(client, WithNotifier(notifier))

	out, err := c.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if out.Kind != NoAnswer || out.Err != nil {
		t.Errorf("outcome = %s (%v), want no-answer", out.Kind, out.Err)
	}
	if notifier.count() != 0 {
		t.Errorf("notifications = %d, want 0", notifier.count())
	}
	assertLog(t, c, []logEntry{{"hello", models.SenderUser}})
}

func TestComplete_PanickingCompleterReleasesGuard(t *testing.T) {
	mock := &api.MockCompleter{CompleteFunc: func(context.Context, string) (*models.Completion, error) {
		panic("completer exploded")
	}}
	c := NewController(mock)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected the completer panic to propagate")
			}
		}()
		_, _ = c.Submit(context.Background(), "first")
	}()

	if c.State() != Idle {
		t.Fatalf("State() = %s after panic, want idle", c.State())
	}

	mock.CompleteFunc = nil
	mock.Answer = "recovered"
	out, err := c.Submit(context.Background(), "second")
	if err != nil {
		t.Fatalf("Submit() after panic error: %v", err)
	}
	if out.Kind != Answered {
		t.Errorf("Kind = %s, want answered", out.Kind)
	}
	assertLog(t, c, []logEntry{
		{"first", models.SenderUser},
		{"second", models.SenderUser},
		{"recovered", models.SenderAI},
	})
}

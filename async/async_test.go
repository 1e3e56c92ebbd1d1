package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nourish/api"
	"nourish/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gated returns a Func whose call for arg blocks until gates[arg] is closed.
func gated(started chan<- int, gates map[int]chan struct{}) Func[int, string] {
	return func(ctx context.Context, arg int) (string, error) {
		started <- arg
		<-gates[arg]
		return fmt.Sprintf("result %d", arg), nil
	}
}

func runOutOfOrder(t *testing.T, op *Operation[int, string], started chan int, gates map[int]chan struct{}) (first, second Result[string]) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); first = op.Execute(context.Background(), 1) }()
	require.Equal(t, 1, <-started)
	go func() { defer wg.Done(); second = op.Execute(context.Background(), 2) }()
	require.Equal(t, 2, <-started)

	// The later call resolves first.
	close(gates[2])
	require.Eventually(t, func() bool { return op.State().Data == "result 2" }, time.Second, time.Millisecond)
	close(gates[1])
	wg.Wait()
	return first, second
}

func TestOperationFencesStaleResults(t *testing.T) {
	started := make(chan int)
	gates := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	op := New(gated(started, gates))

	first, second := runOutOfOrder(t, op, started, gates)

	st := op.State()
	assert.Equal(t, "result 2", st.Data, "latest issued call owns the state")
	assert.False(t, st.Loading)
	assert.True(t, first.Stale)
	assert.True(t, first.Success)
	assert.False(t, second.Stale)
}

func TestOperationLastWriteWins(t *testing.T) {
	started := make(chan int)
	gates := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	op := New(gated(started, gates), WithLastWriteWins())

	first, _ := runOutOfOrder(t, op, started, gates)

	assert.Equal(t, "result 1", op.State().Data, "last call to resolve wins")
	assert.False(t, first.Stale)
}

func TestOperationErrorsBecomeValues(t *testing.T) {
	fe := models.FieldErrors{}
	fe.Add("quantity", "Quantity must be a positive number")
	apiErr := &api.Error{Kind: api.KindValidation, Message: "Invalid entry", FieldErrors: fe, StatusCode: 400}

	var changes int
	op := New(func(ctx context.Context, q float64) (int, error) {
		if q <= 0 {
			return 0, apiErr
		}
		return int(q), nil
	}, OnChange(func() { changes++ }))

	res := op.Execute(context.Background(), -1)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid entry", res.Message)
	assert.Equal(t, fe, res.FieldErrors)

	st := op.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "Invalid entry", st.Message())
	assert.Equal(t, fe, st.FieldErrors)
	assert.Equal(t, 2, changes)

	res = op.Execute(context.Background(), 10)
	assert.True(t, res.Success)
	st = op.State()
	assert.Equal(t, 10, st.Data)
	assert.NoError(t, st.Err)
	assert.Nil(t, st.FieldErrors)
}

func TestOperationPlainError(t *testing.T) {
	op := New(func(ctx context.Context, _ struct{}) (string, error) {
		return "", errors.New("boom")
	})
	res := op.Execute(context.Background(), struct{}{})
	assert.Equal(t, "boom", res.Message)
	assert.Nil(t, res.FieldErrors)
}

func TestOperationLoadingDuringCall(t *testing.T) {
	started := make(chan int)
	gates := map[int]chan struct{}{1: make(chan struct{})}
	op := New(gated(started, gates))

	done := make(chan struct{})
	go func() { defer close(done); op.Execute(context.Background(), 1) }()
	<-started
	assert.True(t, op.State().Loading)
	close(gates[1])
	<-done
	assert.False(t, op.State().Loading)
}

func TestOperationDiscard(t *testing.T) {
	started := make(chan int)
	gates := map[int]chan struct{}{1: make(chan struct{})}
	op := New(gated(started, gates))

	done := make(chan Result[string])
	go func() { done <- op.Execute(context.Background(), 1) }()
	<-started
	op.Discard()
	close(gates[1])
	res := <-done

	assert.True(t, res.Stale)
	assert.Empty(t, op.State().Data)
	assert.True(t, op.State().Loading, "detached state is frozen")
}

func TestOperationCanceledCallKeepsState(t *testing.T) {
	op := New(func(ctx context.Context, q string) (string, error) {
		if q == "slow" {
			<-ctx.Done()
			return "", &api.Error{Kind: api.KindNetwork, Message: "Request canceled", Err: ctx.Err()}
		}
		return "found " + q, nil
	})
	require.True(t, op.Execute(context.Background(), "egg").Success)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := op.Execute(ctx, "slow")
	assert.True(t, res.Canceled)
	assert.False(t, res.Success)

	st := op.State()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err, "cancellation is not shown as an error")
	assert.Equal(t, "found egg", st.Data)
}

func TestDebouncerFiresOnceForSettledInput(t *testing.T) {
	calls := make(chan string, 10)
	d := NewDebouncer(80*time.Millisecond, 2, func(ctx context.Context, q string) {
		calls <- q
	})
	defer d.Close()

	for _, in := range []string{"a", "ap", "app", "appl", " apple "} {
		d.Input(in)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case q := <-calls:
		assert.Equal(t, "apple", q)
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	select {
	case q := <-calls:
		t.Fatalf("unexpected extra call %q", q)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDebouncerShortInputNeverFires(t *testing.T) {
	calls := make(chan string, 10)
	d := NewDebouncer(20*time.Millisecond, 2, func(ctx context.Context, q string) {
		calls <- q
	})
	defer d.Close()

	assert.True(t, d.Input("ban"))
	assert.False(t, d.Input("b"), "shrinking below the minimum cancels the pending call")
	assert.False(t, d.Input("  "))

	select {
	case q := <-calls:
		t.Fatalf("unexpected call %q", q)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerCancelsRunningCall(t *testing.T) {
	running := make(chan struct{})
	canceled := make(chan struct{})
	d := NewDebouncer(10*time.Millisecond, 2, func(ctx context.Context, q string) {
		if q != "egg" {
			return
		}
		close(running)
		<-ctx.Done()
		close(canceled)
	})

	d.Input("egg")
	<-running
	d.Input("e")
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("running call was not canceled")
	}
	d.Close()
}

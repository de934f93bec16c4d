package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/gdk-electrum/internal/core/application/session"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

func TestStateAccounts(t *testing.T) {
	state := session.NewState()

	_, ok := state.Account(0)
	require.False(t, ok)
	require.Zero(t, state.NextAccountIndex())

	state.PutAccount(domain.Account{Index: 3, Name: "three"})
	state.PutAccount(domain.Account{Index: 0, Name: "main", Addresses: []string{"a"}})

	require.Equal(t, []uint32{0, 3}, state.AccountIndexes())
	require.Equal(t, uint32(4), state.NextAccountIndex())

	account, ok := state.Account(0)
	require.True(t, ok)
	account.Addresses[0] = "mutated"
	account, _ = state.Account(0)
	require.Equal(t, "a", account.Addresses[0])

	err := state.AddAccount(domain.Account{Index: 3})
	require.ErrorIs(t, err, domain.ErrSubaccountExists)

	updated, err := state.UpdateAccount(3, func(a *domain.Account) error {
		a.Name = "renamed"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)

	_, err = state.UpdateAccount(3, func(a *domain.Account) error {
		a.Name = "never"
		return errors.New("boom")
	})
	require.Error(t, err)
	account, _ = state.Account(3)
	require.Equal(t, "renamed", account.Name)

	_, err = state.UpdateAccount(7, func(*domain.Account) error { return nil })
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)

	require.True(t, state.RemoveAccount(3))
	require.False(t, state.RemoveAccount(3))
	require.Len(t, state.Accounts(), 1)
}

func TestStateSpentSet(t *testing.T) {
	state := session.NewState()
	op := domain.Outpoint{Txid: "aa", Vout: 1}
	other := domain.Outpoint{Txid: "aa", Vout: 0}

	state.MarkSpent(op, other)
	require.True(t, state.IsSpent(op))
	require.Equal(t, []domain.Outpoint{other, op}, state.SpentOutpoints())

	tests := []struct {
		name     string
		outspend domain.Outspend
		cleared  bool
	}{
		{"not spent", domain.Outspend{}, false},
		{"unconfirmed spend", domain.Outspend{Spent: true}, false},
		{"confirmed spend", domain.Outspend{Spent: true, Confirmed: true}, true},
		{"already cleared", domain.Outspend{Spent: true, Confirmed: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.cleared, state.ClearIfConfirmed(op, tt.outspend))
		})
	}

	require.False(t, state.IsSpent(op))
	require.True(t, state.IsSpent(other))
}

func TestStateSelectableUtxos(t *testing.T) {
	state := session.NewState()
	state.PutAccount(domain.Account{Index: 0, Addresses: []string{"addr0"}})

	utxos := []domain.Utxo{
		{Outpoint: domain.Outpoint{Txid: "t1"}, Address: "addr0", Value: 1},
		{Outpoint: domain.Outpoint{Txid: "t2"}, Address: "addr0", Value: 2},
		{Outpoint: domain.Outpoint{Txid: "t3"}, Address: "foreign", Value: 3},
	}
	state.MarkSpent(domain.Outpoint{Txid: "t1"})

	selectable, err := state.SelectableUtxos(0, utxos)
	require.NoError(t, err)
	require.Len(t, selectable, 1)
	require.Equal(t, "t2", selectable[0].Txid)

	_, err = state.SelectableUtxos(1, utxos)
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)
}

func TestStateConcurrentReaders(t *testing.T) {
	state := session.NewState()
	state.PutAccount(domain.Account{Index: 0})

	// A reader holding both locks must not prevent others from reading.
	inside := make(chan struct{})
	release := make(chan struct{})
	go state.WithAccountAndSpent(0, func(
		*domain.Account, func(domain.Outpoint) bool,
	) error {
		close(inside)
		<-release
		return nil
	})
	<-inside

	done := make(chan struct{})
	go func() {
		state.Account(0)
		state.IsSpent(domain.Outpoint{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readers blocked each other")
	}

	// A writer must instead wait for the reader to release the lock.
	written := make(chan struct{})
	go func() {
		state.PutAccount(domain.Account{Index: 1})
		close(written)
	}()

	select {
	case <-written:
		t.Fatal("writer did not wait for readers")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock")
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	state := session.NewState()
	state.PutAccount(domain.Account{Index: 0})

	wg := &sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			state.MarkSpent(domain.Outpoint{Txid: "tx", Vout: uint32(i)})
			state.UpdateAccount(0, func(a *domain.Account) error {
				a.NextReceive++
				return nil
			})
		}(i)
		go func() {
			defer wg.Done()
			state.SelectableUtxos(0, nil)
			state.SpentOutpoints()
		}()
	}
	wg.Wait()

	account, _ := state.Account(0)
	require.Equal(t, uint32(50), account.NextReceive)
	require.Len(t, state.SpentOutpoints(), 50)
}

func TestStateWorkers(t *testing.T) {
	t.Run("stop without workers is a no-op", func(t *testing.T) {
		state := session.NewState()
		require.NoError(t, state.StopAndJoin())
		require.False(t, state.WorkersRunning())
	})

	t.Run("stop joins every worker", func(t *testing.T) {
		state := session.NewState()
		state.SetUserWantsToSync(true)

		var returned int32
		worker := func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&returned, 1)
			return nil
		}

		err := state.StartWorkers(context.Background(), worker, worker, worker)
		require.NoError(t, err)
		require.True(t, state.WorkersRunning())

		require.NoError(t, state.StopAndJoin())
		require.Equal(t, int32(3), atomic.LoadInt32(&returned))
		require.False(t, state.WorkersRunning())
		require.False(t, state.UserWantsToSync())
	})

	t.Run("second start is rejected", func(t *testing.T) {
		state := session.NewState()
		var started int32
		worker := func(ctx context.Context) error {
			atomic.AddInt32(&started, 1)
			<-ctx.Done()
			return ctx.Err()
		}

		require.NoError(t, state.StartWorkers(context.Background(), worker))
		err := state.StartWorkers(context.Background(), worker)
		require.ErrorIs(t, err, domain.ErrWorkersRunning)

		require.NoError(t, state.StopAndJoin())
		require.Equal(t, int32(1), atomic.LoadInt32(&started))

		require.NoError(t, state.StartWorkers(context.Background(), worker))
		require.NoError(t, state.StopAndJoin())
	})

	t.Run("worker failure is reported on join", func(t *testing.T) {
		state := session.NewState()
		boom := errors.New("boom")
		require.NoError(t, state.StartWorkers(
			context.Background(),
			func(context.Context) error { return boom },
		))
		require.ErrorIs(t, state.StopAndJoin(), boom)
	})
}

func TestStateFlags(t *testing.T) {
	state := session.NewState()
	require.False(t, state.UserWantsToSync())
	require.False(t, state.LastNetworkCallSucceeded())

	state.SetUserWantsToSync(true)
	state.SetLastNetworkCallSucceeded(true)
	require.True(t, state.UserWantsToSync())
	require.True(t, state.LastNetworkCallSucceeded())
}

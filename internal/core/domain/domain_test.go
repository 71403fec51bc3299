package domain

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestAccount(t *testing.T, id, balance string) *Account {
	t.Helper()
	acc, err := NewAccount(id, "Holder "+id, d(balance), "1234")
	require.NoError(t, err)
	return acc
}

func balanceOf(t *testing.T, acc *Account) decimal.Decimal {
	t.Helper()
	b, err := acc.Balance(context.Background())
	require.NoError(t, err)
	return b
}

func historyOf(t *testing.T, acc *Account) []Transaction {
	t.Helper()
	h, err := acc.History(context.Background())
	require.NoError(t, err)
	return h
}

func TestNewAccount(t *testing.T) {
	acc, err := NewAccount("A1", "Alice", d("100"), "1234")
	require.NoError(t, err)

	assert.Equal(t, "A1", acc.ID())
	assert.Equal(t, "Alice", acc.HolderName())
	assert.Equal(t, AccountKindSavings, acc.Kind())
	assert.Equal(t, "1234", acc.SealedCredential())
	assert.False(t, acc.CreatedAt().IsZero())
	assert.True(t, d("100").Equal(balanceOf(t, acc)))
	assert.Empty(t, historyOf(t, acc), "opening balance is not a history record")
}

func TestNewAccount_NegativeBalance(t *testing.T) {
	_, err := NewAccount("A1", "Alice", d("-0.01"), "1234")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAccount_Deposit(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
		want    string
	}{
		{"positive", "50", nil, "150"},
		{"fractional", "0.25", nil, "100.25"},
		{"zero", "0", ErrInvalidAmount, "100"},
		{"negative", "-5", ErrInvalidAmount, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := newTestAccount(t, "A1", "100")

			tx, err := acc.Deposit(context.Background(), d(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, historyOf(t, acc))
			} else {
				require.NoError(t, err)
				assert.Equal(t, TransactionKindDeposit, tx.Kind)
				assert.True(t, d(tt.want).Equal(tx.ResultingBalance))
				assert.Len(t, historyOf(t, acc), 1)
			}
			assert.True(t, d(tt.want).Equal(balanceOf(t, acc)))
		})
	}
}

func TestAccount_Withdraw(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
		want    string
	}{
		{"partial", "40", nil, "60"},
		{"exact balance", "100", nil, "0"},
		{"overdraw", "100.01", ErrInsufficientFunds, "100"},
		{"zero", "0", ErrInvalidAmount, "100"},
		{"negative", "-1", ErrInvalidAmount, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := newTestAccount(t, "A1", "100")

			tx, err := acc.Withdraw(context.Background(), d(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, historyOf(t, acc), "failed withdraw must not log")
			} else {
				require.NoError(t, err)
				assert.Equal(t, TransactionKindWithdrawal, tx.Kind)
				assert.Len(t, historyOf(t, acc), 1)
			}
			assert.True(t, d(tt.want).Equal(balanceOf(t, acc)))
		})
	}
}

func TestAccount_Transfer(t *testing.T) {
	ctx := context.Background()
	a1 := newTestAccount(t, "A1", "150")
	a2 := newTestAccount(t, "A2", "0")

	out, in, err := a1.Transfer(ctx, a2, d("100"))
	require.NoError(t, err)

	assert.Equal(t, TransactionKindTransferOut, out.Kind)
	assert.Equal(t, "A2", out.CounterpartyID)
	assert.True(t, d("50").Equal(out.ResultingBalance))
	assert.Equal(t, TransactionKindTransferIn, in.Kind)
	assert.Equal(t, "A1", in.CounterpartyID)
	assert.True(t, d("100").Equal(in.ResultingBalance))

	assert.True(t, d("50").Equal(balanceOf(t, a1)))
	assert.True(t, d("100").Equal(balanceOf(t, a2)))
	assert.Len(t, historyOf(t, a1), 1)
	assert.Len(t, historyOf(t, a2), 1)
}

func TestAccount_Transfer_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient funds changes nothing", func(t *testing.T) {
		a1 := newTestAccount(t, "A1", "50")
		a2 := newTestAccount(t, "A2", "10")

		_, _, err := a1.Transfer(ctx, a2, d("50.01"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.True(t, d("50").Equal(balanceOf(t, a1)))
		assert.True(t, d("10").Equal(balanceOf(t, a2)))
		assert.Empty(t, historyOf(t, a1))
		assert.Empty(t, historyOf(t, a2))
	})

	t.Run("same account", func(t *testing.T) {
		a1 := newTestAccount(t, "A1", "50")
		_, _, err := a1.Transfer(ctx, a1, d("10"))
		assert.ErrorIs(t, err, ErrSameAccount)
		assert.Empty(t, historyOf(t, a1))
	})

	t.Run("invalid amount", func(t *testing.T) {
		a1 := newTestAccount(t, "A1", "50")
		a2 := newTestAccount(t, "A2", "0")
		_, _, err := a1.Transfer(ctx, a2, d("0"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("closed recipient", func(t *testing.T) {
		a1 := newTestAccount(t, "A1", "50")
		a2 := newTestAccount(t, "A2", "0")
		require.NoError(t, a2.Close(ctx))

		_, _, err := a1.Transfer(ctx, a2, d("10"))
		assert.ErrorIs(t, err, ErrAccountClosed)
		assert.True(t, d("50").Equal(balanceOf(t, a1)))
		assert.Empty(t, historyOf(t, a1))
	})
}

func TestAccount_HistoryIsACopy(t *testing.T) {
	acc := newTestAccount(t, "A1", "0")
	_, err := acc.Deposit(context.Background(), d("10"))
	require.NoError(t, err)

	h := historyOf(t, acc)
	h[0].Amount = d("999")

	again := historyOf(t, acc)
	require.Len(t, again, 1)
	assert.True(t, d("10").Equal(again[0].Amount))
}

func TestAccount_Close(t *testing.T) {
	ctx := context.Background()
	acc := newTestAccount(t, "A1", "10")
	require.NoError(t, acc.Close(ctx))

	assert.ErrorIs(t, acc.Close(ctx), ErrAccountClosed)
	_, err := acc.Deposit(ctx, d("1"))
	assert.ErrorIs(t, err, ErrAccountClosed)
	_, err = acc.Withdraw(ctx, d("1"))
	assert.ErrorIs(t, err, ErrAccountClosed)
	_, err = acc.Balance(ctx)
	assert.ErrorIs(t, err, ErrAccountClosed)
	_, err = acc.History(ctx)
	assert.ErrorIs(t, err, ErrAccountClosed)
	_, err = acc.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrAccountClosed)
}

func TestAccount_Snapshot(t *testing.T) {
	ctx := context.Background()
	acc := newTestAccount(t, "A1", "10")
	_, err := acc.Deposit(ctx, d("5"))
	require.NoError(t, err)

	snap, err := acc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A1", snap.ID)
	assert.Equal(t, AccountKindSavings, snap.Kind)
	assert.True(t, d("15").Equal(snap.Balance))
	assert.Equal(t, 1, snap.HistoryCount)
}

func TestAccount_GuardHonoursContext(t *testing.T) {
	acc := newTestAccount(t, "A1", "10")

	// Hold the guard so the deposit below cannot acquire it.
	require.NoError(t, acc.lock(context.Background()))
	defer acc.unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := acc.Deposit(ctx, d("1"))
	assert.ErrorIs(t, err, ErrAccountBusy)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAccount_ConcurrentOpposingTransfers(t *testing.T) {
	ctx := context.Background()
	a := newTestAccount(t, "A", "1000")
	b := newTestAccount(t, "B", "1000")

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _, _ = a.Transfer(ctx, b, d("7"))
		}()
		go func() {
			defer wg.Done()
			_, _, _ = b.Transfer(ctx, a, d("3"))
		}()
	}
	wg.Wait()

	total := balanceOf(t, a).Add(balanceOf(t, b))
	assert.True(t, d("2000").Equal(total), "total must be conserved, got %s", total)
	assert.False(t, balanceOf(t, a).IsNegative())
	assert.False(t, balanceOf(t, b).IsNegative())
	assert.Equal(t, len(historyOf(t, a)), len(historyOf(t, b)), "every leg logged on both sides")
}

func TestAccount_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	acc := newTestAccount(t, "A1", "100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := acc.Withdraw(ctx, d("3")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 33, succeeded)
	assert.True(t, d("1").Equal(balanceOf(t, acc)))
	assert.Len(t, historyOf(t, acc), 33)
}

func TestTransaction_String(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want string
	}{
		{"deposit", Transaction{Kind: TransactionKindDeposit, Amount: d("50")}, "Deposit: +50"},
		{"withdrawal", Transaction{Kind: TransactionKindWithdrawal, Amount: d("20")}, "Withdrawal: -20"},
		{"transfer out", Transaction{Kind: TransactionKindTransferOut, Amount: d("100"), CounterpartyID: "A2"}, "Transfer to A2: -100"},
		{"transfer in", Transaction{Kind: TransactionKindTransferIn, Amount: d("100"), CounterpartyID: "A1"}, "Transfer from A1: +100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.String())
		})
	}
}

func TestTransaction_SignedAmount(t *testing.T) {
	assert.True(t, d("5").Equal(Transaction{Kind: TransactionKindTransferIn, Amount: d("5")}.SignedAmount()))
	assert.True(t, d("-5").Equal(Transaction{Kind: TransactionKindWithdrawal, Amount: d("5")}.SignedAmount()))
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "A1:deposit:key-001", BuildIdempotencyKey("A1", "deposit", "key-001"))
}
